package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	WorkspacesDir string `mapstructure:"workspaces_dir" yaml:"workspaces_dir"`
	Target        string `mapstructure:"target" yaml:"target" validate:"required"`
	// Workers bounds per-variable concurrency; 0 means GOMAXPROCS.
	Workers int `mapstructure:"workers" yaml:"workers" validate:"gte=0"`

	Build     Build     `mapstructure:"build" yaml:"build"`
	Metadata  Metadata  `mapstructure:"metadata" yaml:"metadata"`
	Features  Features  `mapstructure:"features" yaml:"features"`
	WoE       WoE       `mapstructure:"woe" yaml:"woe"`
	Collinear Collinear `mapstructure:"collinear" yaml:"collinear"`
	Model     Model     `mapstructure:"model" yaml:"model"`
	Scorecard Scorecard `mapstructure:"scorecard" yaml:"scorecard"`
	Reduce    Reduce    `mapstructure:"reduce" yaml:"reduce"`
}

type Build struct {
	Seed uint64 `mapstructure:"seed" yaml:"seed"`
	// AsOf replaces "today" when aging accounts; empty means the run date.
	AsOf string `mapstructure:"as_of" yaml:"as_of" validate:"omitempty,datetime=2006-01-02"`
}

type Metadata struct {
	HighMissingPct  float64  `mapstructure:"high_missing_pct" yaml:"high_missing_pct" validate:"gte=0,lte=100"`
	DuplicateSample int      `mapstructure:"duplicate_sample" yaml:"duplicate_sample" validate:"gte=0"`
	Seed            uint64   `mapstructure:"seed" yaml:"seed"`
	CategoricalVars []string `mapstructure:"categorical_vars" yaml:"categorical_vars"`
	DescribeVars    []string `mapstructure:"describe_vars" yaml:"describe_vars"`
	CustomerKey     string   `mapstructure:"customer_key" yaml:"customer_key"`
}

type Features struct {
	ObsStart        string   `mapstructure:"obs_start" yaml:"obs_start" validate:"required,datetime=2006-01-02"`
	ObsEnd          string   `mapstructure:"obs_end" yaml:"obs_end" validate:"required,datetime=2006-01-02"`
	MinTenureMonths float64  `mapstructure:"min_tenure_months" yaml:"min_tenure_months" validate:"gte=0"`
	CapVars         []string `mapstructure:"cap_vars" yaml:"cap_vars"`
	LowerPct        float64  `mapstructure:"lower_pct" yaml:"lower_pct" validate:"gte=0,lt=1"`
	UpperPct        float64  `mapstructure:"upper_pct" yaml:"upper_pct" validate:"gt=0,lte=1,gtfield=LowerPct"`
}

type WoE struct {
	Bins        int       `mapstructure:"bins" yaml:"bins" validate:"gte=2,lte=100"`
	IVMin       float64   `mapstructure:"iv_min" yaml:"iv_min" validate:"gte=0"`
	IVMax       float64   `mapstructure:"iv_max" yaml:"iv_max" validate:"gtfield=IVMin"`
	Smoothing   float64   `mapstructure:"smoothing" yaml:"smoothing" validate:"gt=0,lt=1"`
	ManualVar   string    `mapstructure:"manual_var" yaml:"manual_var"`
	ManualEdges []float64 `mapstructure:"manual_edges" yaml:"manual_edges"`
	KeepVars    []string  `mapstructure:"keep_vars" yaml:"keep_vars"`
}

type Collinear struct {
	PairThreshold  float64  `mapstructure:"pair_threshold" yaml:"pair_threshold" validate:"gt=0,lte=1"`
	DropAbove      float64  `mapstructure:"drop_above" yaml:"drop_above" validate:"gt=0,lte=1"`
	DropAboveLowIV float64  `mapstructure:"drop_above_low_iv" yaml:"drop_above_low_iv" validate:"gt=0,lte=1"`
	MinIV          float64  `mapstructure:"min_iv" yaml:"min_iv" validate:"gte=0"`
	VIFThreshold   float64  `mapstructure:"vif_threshold" yaml:"vif_threshold" validate:"gt=1"`
	Exclude        []string `mapstructure:"exclude" yaml:"exclude"`
	Protected      []string `mapstructure:"protected" yaml:"protected"`
	FinalKeep      []string `mapstructure:"final_keep" yaml:"final_keep"`
}

type Model struct {
	TestSize float64 `mapstructure:"test_size" yaml:"test_size" validate:"gt=0,lt=1"`
	Seed     uint64  `mapstructure:"seed" yaml:"seed"`
	MaxIter  int     `mapstructure:"max_iter" yaml:"max_iter" validate:"gte=1"`
	C        float64 `mapstructure:"c" yaml:"c" validate:"gt=0"`
	Deciles  int     `mapstructure:"deciles" yaml:"deciles" validate:"gte=2,lte=100"`
	// Features is the fitted variable list; empty means every numeric column.
	Features []string `mapstructure:"features" yaml:"features"`
}

type Scorecard struct {
	BaseScore  float64 `mapstructure:"base_score" yaml:"base_score"`
	PDO        float64 `mapstructure:"pdo" yaml:"pdo" validate:"gt=0"`
	ProbColumn string  `mapstructure:"prob_column" yaml:"prob_column" validate:"required"`
	TopFactors int     `mapstructure:"top_factors" yaml:"top_factors" validate:"gte=0"`
}

type Reduce struct {
	CorrThreshold float64 `mapstructure:"corr_threshold" yaml:"corr_threshold" validate:"gt=0,lte=1"`
	MinStd        float64 `mapstructure:"min_std" yaml:"min_std" validate:"gte=0"`
	MaxMissingPct float64 `mapstructure:"max_missing_pct" yaml:"max_missing_pct" validate:"gt=0,lte=100"`
}

// ProtectedVars are kept through VIF filtering and the IV filter.
var ProtectedVars = []string{
	"bureau_score", "salary_credit_3m", "emi_to_income_ratio", "dpd_max",
	"dpd_count_30_plus", "utilization_score", "balance_utilization_score",
	"age", "employment_type", "education_level", "marital_status", "risk_score",
}

// ModelVars are the variables of the final logistic model.
var ModelVars = []string{
	"amount_income_term_score", "annual_interest_rate", "pos_transaction_volume",
	"recovery_success_flag", "dpd_max_adj", "risk_score", "overdue_normalized", "dpd_recent_flag",
}

// FinalKeepVars is the reviewed variable list for the model-ready dataset.
var FinalKeepVars = []string{
	"account_open_date", "account_tenure_months", "age", "amount_income_term_score",
	"annual_interest_rate", "application_date", "avg_combined_score",
	"balance_utilization_score", "behavior_score_gap", "bureau_score",
	"credit_card_utilization_pct", "default_flag", "dpd_count_30_plus", "dpd_max",
	"dpd_recent_flag", "emi_to_income_ratio", "employment_type", "loan_size_score",
	"overdue_normalized", "pos_transaction_volume", "recovery_success_flag",
	"risk_score", "tenure_months",
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".scoreloom"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.scoreloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	if err := Validate(c); err != nil {
		return err
	}
	path := cfgFile
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("target", "default_flag")
	v.SetDefault("workers", 0)

	v.SetDefault("build.seed", 42)
	v.SetDefault("build.as_of", "")

	v.SetDefault("metadata.high_missing_pct", 30.0)
	v.SetDefault("metadata.duplicate_sample", 1000)
	v.SetDefault("metadata.seed", 42)
	v.SetDefault("metadata.categorical_vars", []string{"gender", "marital_status", "residence_type"})
	v.SetDefault("metadata.describe_vars", []string{"bureau_score", "emi_to_income_ratio", "monthly_income"})
	v.SetDefault("metadata.customer_key", "cust_id")

	v.SetDefault("features.obs_start", "2022-01-01")
	v.SetDefault("features.obs_end", "2022-12-31")
	v.SetDefault("features.min_tenure_months", 3.0)
	v.SetDefault("features.cap_vars", []string{"bureau_score", "total_emi", "monthly_income"})
	v.SetDefault("features.lower_pct", 0.01)
	v.SetDefault("features.upper_pct", 0.99)

	v.SetDefault("woe.bins", 10)
	v.SetDefault("woe.iv_min", 0.015)
	v.SetDefault("woe.iv_max", 5.0)
	v.SetDefault("woe.smoothing", 0.0001)
	v.SetDefault("woe.manual_var", "bureau_score")
	v.SetDefault("woe.manual_edges", []float64{400, 500, 600, 700})
	v.SetDefault("woe.keep_vars", ProtectedVars)

	v.SetDefault("collinear.pair_threshold", 0.90)
	v.SetDefault("collinear.drop_above", 0.98)
	v.SetDefault("collinear.drop_above_low_iv", 0.95)
	v.SetDefault("collinear.min_iv", 0.02)
	v.SetDefault("collinear.vif_threshold", 10.0)
	v.SetDefault("collinear.exclude", []string{})
	v.SetDefault("collinear.protected", ProtectedVars)
	v.SetDefault("collinear.final_keep", FinalKeepVars)

	v.SetDefault("model.test_size", 0.3)
	v.SetDefault("model.seed", 12345)
	v.SetDefault("model.max_iter", 1000)
	v.SetDefault("model.c", 1.0)
	v.SetDefault("model.deciles", 10)
	v.SetDefault("model.features", ModelVars)

	v.SetDefault("scorecard.base_score", 600.0)
	v.SetDefault("scorecard.pdo", 20.0)
	v.SetDefault("scorecard.prob_column", "P_1")
	v.SetDefault("scorecard.top_factors", 3)

	v.SetDefault("reduce.corr_threshold", 0.95)
	v.SetDefault("reduce.min_std", 0.01)
	v.SetDefault("reduce.max_missing_pct", 30.0)
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("SCORELOOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		_ = os.MkdirAll(dir, 0o755)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read; a missing file falls back to env and defaults
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.WorkspacesDir == "" {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		c.WorkspacesDir = filepath.Join(dir, "workspaces")
	}
	if err := Validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

var validate = validator.New()

// Validate checks field ranges declared in struct tags.
func Validate(c *Global) error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
