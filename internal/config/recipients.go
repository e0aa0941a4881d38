package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Recipients lists who receives each venue's report.
//
//	default:
//	  to: [ops@example.com]
//	  cc: [sales@example.com]
//	venues:
//	  Main Stadium:
//	    to: [stadium@example.com]
type Recipients struct {
	Default RecipientList            `yaml:"default"`
	Venues  map[string]RecipientList `yaml:"venues"`
}

type RecipientList struct {
	To []string `yaml:"to"`
	Cc []string `yaml:"cc"`
}

// LoadRecipients reads a recipients file.
func LoadRecipients(path string) (Recipients, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Recipients{}, fmt.Errorf("read recipients: %w", err)
	}
	var r Recipients
	if err := yaml.Unmarshal(b, &r); err != nil {
		return Recipients{}, fmt.Errorf("parse recipients %s: %w", path, err)
	}
	return r, nil
}

// For returns the list for venue. A venue entry replaces the default To list
// and falls back to the default Cc list when it has none of its own.
func (r Recipients) For(venue string) (RecipientList, error) {
	out := r.Default
	if v, ok := r.Venues[venue]; ok {
		if len(v.To) > 0 {
			out.To = v.To
		}
		if len(v.Cc) > 0 {
			out.Cc = v.Cc
		}
	}
	if len(out.To) == 0 {
		return RecipientList{}, fmt.Errorf("no recipients configured for venue %q", venue)
	}
	return out, nil
}
