package pack

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/icl-lang/iclc/core/lower"
)

// manifestDoc mirrors Manifest in a YAML-friendly shape so a pack's
// manifest.yaml can be hand-authored rather than constructed in Go.
type manifestDoc struct {
	PackID               string          `yaml:"pack_id"`
	Version              string          `yaml:"version"`
	Target               string          `yaml:"target"`
	Aliases              []string        `yaml:"aliases"`
	Stability            string          `yaml:"stability"`
	FileExtension        string          `yaml:"file_extension"`
	BlockModel           string          `yaml:"block_model"`
	StatementTermination string          `yaml:"statement_termination"`
	TypeStrategy         struct {
		Description string `yaml:"description"`
		Erased      bool   `yaml:"erased"`
	} `yaml:"type_strategy"`
	RuntimeHelpers []string `yaml:"runtime_helpers"`
	Scaffolding    struct {
		PrimaryFile     string   `yaml:"primary_file"`
		AdditionalFiles []string `yaml:"additional_files"`
		Entrypoint      string   `yaml:"entrypoint"`
	} `yaml:"scaffolding"`
	FeatureCoverage map[string]bool   `yaml:"feature_coverage"`
	Fallbacks       map[string]string `yaml:"fallbacks"`
}

// LoadManifestYAML parses a manifest.yaml document into a Manifest,
// validating it via Validate before returning.
func LoadManifestYAML(data []byte) (Manifest, error) {
	var doc manifestDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Manifest{}, fmt.Errorf("parsing pack manifest: %w", err)
	}

	fallbacks := make(map[string]lower.FallbackMode, len(doc.Fallbacks))
	for feature, mode := range doc.Fallbacks {
		switch mode {
		case "warn":
			fallbacks[feature] = lower.FallbackWarn
		case "substitute":
			fallbacks[feature] = lower.FallbackSubstitute
		default:
			return Manifest{}, fmt.Errorf("pack %q: unknown fallback mode %q for feature %q", doc.PackID, mode, feature)
		}
	}

	m := Manifest{
		PackID:               doc.PackID,
		Version:              doc.Version,
		Target:               doc.Target,
		Aliases:              doc.Aliases,
		Stability:            Stability(doc.Stability),
		FileExtension:        doc.FileExtension,
		BlockModel:           BlockModel(doc.BlockModel),
		StatementTermination: StatementTermination(doc.StatementTermination),
		TypeStrategy:         TypeStrategy{Description: doc.TypeStrategy.Description, Erased: doc.TypeStrategy.Erased},
		RuntimeHelpers:       doc.RuntimeHelpers,
		Scaffolding: Scaffolding{
			PrimaryFile:     doc.Scaffolding.PrimaryFile,
			AdditionalFiles: doc.Scaffolding.AdditionalFiles,
			Entrypoint:      doc.Scaffolding.Entrypoint,
		},
		FeatureCoverage: lower.FeatureCoverage(doc.FeatureCoverage),
		Fallbacks:       fallbacks,
	}
	return m, Validate(m)
}

// Validate checks manifest completeness and structural invariants.
func Validate(m Manifest) error {
	if m.PackID == "" {
		return fmt.Errorf("pack manifest missing pack_id")
	}
	if m.Target == "" {
		return fmt.Errorf("pack %q missing target", m.PackID)
	}
	switch m.Stability {
	case Experimental, Beta, Stable:
	default:
		return fmt.Errorf("pack %q has unknown stability %q", m.PackID, m.Stability)
	}
	if m.FeatureCoverage == nil {
		return fmt.Errorf("pack %q missing feature_coverage", m.PackID)
	}
	if m.Scaffolding.PrimaryFile == "" {
		return fmt.Errorf("pack %q missing scaffolding.primary_file", m.PackID)
	}
	return nil
}
