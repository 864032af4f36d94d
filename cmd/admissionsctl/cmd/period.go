package cmd

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/Admissions/internal/api"
	"github.com/MikeSquared-Agency/Admissions/internal/scoring"
	"github.com/MikeSquared-Agency/Admissions/internal/store"
)

// periodFile is the YAML description of a period. The fixed scheme takes
// weights w1..w7; the dynamic scheme takes a criteria list.
//
//	name: Gelombang 1
//	scheme: dynamic
//	criteria:
//	  - {code: akademik, name: Nilai Akademik, weight: 3}
//	  - {code: jarak, name: Jarak Rumah, polarity: cost, weight: 1}
type periodFile struct {
	Name     string             `yaml:"name"`
	Scheme   string             `yaml:"scheme"`
	Weights  *scoring.WeightSet `yaml:"weights"`
	Criteria []criterionEntry   `yaml:"criteria"`
}

type criterionEntry struct {
	Code     string  `yaml:"code"`
	Name     string  `yaml:"name"`
	Polarity string  `yaml:"polarity"`
	Weight   float64 `yaml:"weight"`
}

func loadPeriodFile(path string) (*periodFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var pf periodFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if pf.Scheme == "" {
		pf.Scheme = string(store.SchemeFixed)
		if len(pf.Criteria) > 0 && pf.Weights == nil {
			pf.Scheme = string(store.SchemeDynamic)
		}
	}
	return &pf, nil
}

// request is the API body that creates this period.
func (pf *periodFile) request() api.CreatePeriodRequest {
	req := api.CreatePeriodRequest{Name: pf.Name, Scheme: pf.Scheme, Weights: pf.Weights}
	for _, c := range pf.Criteria {
		req.Criteria = append(req.Criteria, api.CriterionInput{
			Code:     c.Code,
			Name:     c.Name,
			Polarity: c.Polarity,
			Weight:   c.Weight,
		})
	}
	return req
}

// criteria builds the period's criteria with fresh ids, validated exactly as
// the API validates a create request.
func (pf *periodFile) criteria() ([]*store.Criterion, error) {
	if store.WeightScheme(pf.Scheme) == store.SchemeDynamic && len(pf.Criteria) == 0 {
		return nil, fmt.Errorf("%w: the dynamic scheme needs at least one criterion", scoring.ErrInvalidInput)
	}
	req := pf.request()
	_, criteria, err := req.BuildCriteria()
	if err != nil {
		return nil, err
	}
	for _, c := range criteria {
		c.ID = uuid.New()
	}
	return criteria, nil
}
