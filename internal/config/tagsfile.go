package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// TagFile is an operator-supplied YAML override for the tag vocabulary and
// scoring weights, applied on top of the loaded config.
type TagFile struct {
	Vocabulary map[string][]string `yaml:"vocabulary"`
	Weights    map[string]int      `yaml:"weights"`
}

// ApplyTagFile merges a YAML tag file into cfg. Entries replace same-named
// canonical tags; tags absent from the file are kept.
func ApplyTagFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "config: read tag file %s", path)
	}

	var tf TagFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return eris.Wrapf(err, "config: parse tag file %s", path)
	}

	if cfg.Tags.Vocabulary == nil {
		cfg.Tags.Vocabulary = make(map[string][]string)
	}
	for tag, synonyms := range tf.Vocabulary {
		cfg.Tags.Vocabulary[tag] = synonyms
	}

	if cfg.Score.TagWeights == nil {
		cfg.Score.TagWeights = make(map[string]int)
	}
	for tag, w := range tf.Weights {
		cfg.Score.TagWeights[tag] = w
	}

	return nil
}
