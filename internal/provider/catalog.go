package provider

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is a file of extra vendor records registered at runtime.
//
//	vendors:
//	  - name: groq
//	    display_name: Groq
//	    base_url: https://api.groq.com/openai
//	    rules:
//	      default_context_window: 8192
//	      context_window:
//	        - any: [llama-3.3-70b]
//	          value: 131072
//	    fallback:
//	      - id: llama-3.3-70b-versatile
//	        name: Llama 3.3 70B
type Catalog struct {
	Vendors []Vendor `yaml:"vendors"`
}

// LoadCatalog reads and validates a catalog file.
func LoadCatalog(path string) ([]Vendor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vendor catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes catalog YAML. Every vendor needs a name and base URL.
func ParseCatalog(data []byte) ([]Vendor, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse vendor catalog: %w", err)
	}
	for i, v := range c.Vendors {
		if v.Name == "" {
			return nil, &ValidationError{Field: fmt.Sprintf("vendors[%d].name", i), Message: "is required"}
		}
		if v.BaseURL == "" {
			return nil, &ValidationError{Field: fmt.Sprintf("vendors[%d].base_url", i), Message: "is required"}
		}
		if v.DisplayName == "" {
			c.Vendors[i].DisplayName = v.Name
		}
	}
	return c.Vendors, nil
}
