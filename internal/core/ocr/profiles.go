package ocr

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
)

// InvoiceWhitelist restricts the printed profile to characters found on invoices.
const InvoiceWhitelist = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz.,$/-()@& "

// ConfigProfile is one engine configuration tried during a sweep.
type ConfigProfile struct {
	Name      string `yaml:"name"`
	PSM       int    `yaml:"psm"`
	OEM       int    `yaml:"oem"`
	Whitelist string `yaml:"whitelist,omitempty"`
}

// Args renders the engine flags for this profile.
func (p ConfigProfile) Args() []string {
	args := []string{"--psm", strconv.Itoa(p.PSM), "--oem", strconv.Itoa(p.OEM)}
	if p.Whitelist != "" {
		args = append(args, "-c", "tessedit_char_whitelist="+p.Whitelist)
	}
	return args
}

// DefaultProfiles returns the sweep in enumeration order. Order breaks ties.
func DefaultProfiles() []ConfigProfile {
	return []ConfigProfile{
		{Name: "printed", PSM: 6, OEM: 3, Whitelist: InvoiceWhitelist},
		{Name: "handwritten", PSM: 8, OEM: 3},
		{Name: "auto", PSM: 6, OEM: 3},
		{Name: "single_line", PSM: 8, OEM: 3},
		{Name: "single_word", PSM: 13, OEM: 3},
	}
}

type profilesFile struct {
	Profiles []ConfigProfile `yaml:"profiles"`
}

// LoadProfiles reads an ordered profile list from a YAML file:
//
//	profiles:
//	  - name: printed
//	    psm: 6
//	    oem: 3
func LoadProfiles(path string) ([]ConfigProfile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profiles file: %w", err)
	}
	var pf profilesFile
	if err := yaml.Unmarshal(b, &pf); err != nil {
		return nil, fmt.Errorf("parse profiles file: %w", err)
	}
	if err := validateProfiles(pf.Profiles); err != nil {
		return nil, err
	}
	return pf.Profiles, nil
}

func validateProfiles(profiles []ConfigProfile) error {
	if len(profiles) == 0 {
		return common.NewAppError(common.CodeConfig, "at least one profile is required", common.ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(profiles))
	v := common.NewValidator()
	for i, p := range profiles {
		v.Field(fmt.Sprintf("profiles[%d].name", i), p.Name, common.Required).
			Field(fmt.Sprintf("profiles[%d].psm", i), p.PSM, common.Between(0, 13)).
			Field(fmt.Sprintf("profiles[%d].oem", i), p.OEM, common.Between(0, 3))
		if _, dup := seen[p.Name]; dup {
			return common.NewAppError(common.CodeConfig, "duplicate profile "+p.Name, common.ErrInvalidInput)
		}
		seen[p.Name] = struct{}{}
	}
	return common.ValidateAndReturnError(v)
}
