package catalog

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v2"
)

//go:embed data/*.yaml
var fixtures embed.FS

// Credit is a consumer loan offer.
type Credit struct {
	ID           string   `yaml:"id"`
	Bank         string   `yaml:"bank"`
	Type         string   `yaml:"type"`
	InterestRate float64  `yaml:"interest_rate"`
	MaxAmount    float64  `yaml:"max_amount"`
	MaxTerm      int      `yaml:"max_term"`
	MinAge       int      `yaml:"min_age"`
	MinIncome    float64  `yaml:"min_income"`
	Features     []string `yaml:"features"`
	Requirements []string `yaml:"requirements"`
}

// Card is a credit card offer.
type Card struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Bank         string   `yaml:"bank"`
	Type         string   `yaml:"type"`
	AnnualFee    float64  `yaml:"annual_fee"`
	WelcomeBonus string   `yaml:"welcome_bonus"`
	RewardRate   float64  `yaml:"reward_rate"`
	Features     []string `yaml:"features"`
	Benefits     []string `yaml:"benefits"`
	Requirements []string `yaml:"requirements"`
}

// Fee is a bank charge. A nil Amount means the fee is variable.
type Fee struct {
	ID          string   `yaml:"id"`
	Bank        string   `yaml:"bank"`
	Category    string   `yaml:"category"`
	Name        string   `yaml:"name"`
	Amount      *float64 `yaml:"amount"`
	Description string   `yaml:"description"`
	Frequency   string   `yaml:"frequency"`
	Conditions  []string `yaml:"conditions"`
}

// Promotion is a campaign such as a salary or pension bonus.
type Promotion struct {
	ID          string   `yaml:"id"`
	Bank        string   `yaml:"bank"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Type        string   `yaml:"type"`
	Amount      float64  `yaml:"amount"`
	Conditions  []string `yaml:"conditions"`
	ValidUntil  string   `yaml:"valid_until"`
	MinSalary   *float64 `yaml:"min_salary"`
	MinAge      *int     `yaml:"min_age"`
	MaxAge      *int     `yaml:"max_age"`
	Featured    bool     `yaml:"featured"`
}

// Bank is a participating institution.
type Bank struct {
	Slug     string `yaml:"slug"`
	Name     string `yaml:"name"`
	Homepage string `yaml:"homepage"`
}

// Catalog holds every comparison dataset.
type Catalog struct {
	Credits    []Credit
	Cards      []Card
	Fees       []Fee
	Promotions []Promotion
	Banks      []Bank
}

// Load decodes the embedded fixtures.
func Load() (*Catalog, error) {
	c := &Catalog{}
	for _, f := range []struct {
		name string
		dst  any
	}{
		{"credits", &c.Credits},
		{"cards", &c.Cards},
		{"fees", &c.Fees},
		{"promotions", &c.Promotions},
		{"banks", &c.Banks},
	} {
		if err := decodeFixture(f.name, f.dst); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func decodeFixture(name string, dst any) error {
	raw, err := fixtures.ReadFile("data/" + name + ".yaml")
	if err != nil {
		return fmt.Errorf("read %s fixture: %w", name, err)
	}
	if err := yaml.UnmarshalStrict(raw, dst); err != nil {
		return fmt.Errorf("decode %s fixture: %w", name, err)
	}
	return nil
}

// BankBySlug finds a bank by its slug.
func (c *Catalog) BankBySlug(slug string) (Bank, bool) {
	for _, b := range c.Banks {
		if b.Slug == slug {
			return b, true
		}
	}
	return Bank{}, false
}
