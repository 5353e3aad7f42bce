// Package seed provides the data a ledger starts from when nothing has been
// persisted yet.
package seed

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/facturier/facturier/internal/billing"
)

//go:embed default.yaml
var defaultYAML []byte

// Data is the initial content of the client and product collections.
type Data struct {
	Clients  []billing.Client
	Products []billing.Product
}

type fileProduct struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	NameAr string `yaml:"nameAr"`
	Unit   string `yaml:"unit"`
	Price  string `yaml:"price"`
	Stock  int    `yaml:"stock"`
}

type fileClient struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Wilaya string `yaml:"wilaya"`
	RC     string `yaml:"rc"`
	NIF    string `yaml:"nif"`
	ART    string `yaml:"art"`
	Phone  string `yaml:"phone"`
}

type file struct {
	Products []fileProduct `yaml:"products"`
	Clients  []fileClient  `yaml:"clients"`
}

// Default returns the embedded seed.
func Default() Data {
	data, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("seed: embedded default.yaml: %v", err))
	}
	return data
}

// Load reads a seed file, or returns Default when path is empty.
func Load(path string) (Data, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Data{}, fmt.Errorf("seed: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes and validates YAML seed content.
func Parse(raw []byte) (Data, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return Data{}, fmt.Errorf("seed: decode: %w", err)
	}

	data := Data{
		Clients:  make([]billing.Client, 0, len(f.Clients)),
		Products: make([]billing.Product, 0, len(f.Products)),
	}
	seen := make(map[string]bool)
	for _, p := range f.Products {
		if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.Name) == "" {
			return Data{}, errors.New("seed: product id and name are required")
		}
		if seen["p:"+p.ID] {
			return Data{}, fmt.Errorf("seed: duplicate product id %s", p.ID)
		}
		seen["p:"+p.ID] = true
		price := decimal.Zero
		if p.Price != "" {
			var err error
			price, err = decimal.NewFromString(p.Price)
			if err != nil {
				return Data{}, fmt.Errorf("seed: product %s price: %w", p.ID, err)
			}
		}
		if price.IsNegative() || p.Stock < 0 {
			return Data{}, fmt.Errorf("seed: product %s has negative price or stock", p.ID)
		}
		unit := p.Unit
		if unit == "" {
			unit = "u"
		}
		data.Products = append(data.Products, billing.Product{
			ID:        p.ID,
			Name:      p.Name,
			NameAlt:   p.NameAr,
			Unit:      unit,
			UnitPrice: price,
			Stock:     p.Stock,
		})
	}
	for _, c := range f.Clients {
		if strings.TrimSpace(c.ID) == "" || strings.TrimSpace(c.Name) == "" {
			return Data{}, errors.New("seed: client id and name are required")
		}
		if seen["c:"+c.ID] {
			return Data{}, fmt.Errorf("seed: duplicate client id %s", c.ID)
		}
		seen["c:"+c.ID] = true
		data.Clients = append(data.Clients, billing.Client{
			ID:                   c.ID,
			Name:                 c.Name,
			Category:             c.Type,
			Region:               c.Wilaya,
			CommercialRegisterNo: c.RC,
			TaxID:                c.NIF,
			ArtisanID:            c.ART,
			Phone:                c.Phone,
			LegacyTotalDebt:      decimal.Zero,
		})
	}
	return data, nil
}
