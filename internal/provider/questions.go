package provider

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// defaultQuestions seed the discovery-question bank when no config file is
// provided, and back the degraded fallback packet.
var defaultQuestions = []string{
	"What does your current process for this look like today?",
	"What prompted you to start looking at solutions now?",
	"Who else would be involved in evaluating a change here?",
	"What would success look like six months after switching?",
	"What has stopped you from solving this in the past?",
}

type questionsFile struct {
	Questions []string `yaml:"questions"`
}

// LoadQuestions reads a discovery-question bank from a YAML file. An empty
// path returns the built-in defaults.
func LoadQuestions(path string) ([]string, error) {
	if path == "" {
		return defaultQuestions, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "provider: read questions file %s", path)
	}

	var qf questionsFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, eris.Wrapf(err, "provider: parse questions file %s", path)
	}
	if len(qf.Questions) == 0 {
		return defaultQuestions, nil
	}
	return qf.Questions, nil
}
