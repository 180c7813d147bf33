package model

import (
	"fmt"
	"math/rand/v2"

	"github.com/samber/lo"
)

// GenerateInput builds a random catalog of layered courses (prerequisites only point to earlier layers) together
// with requirements sized after the courses fulfilling them. The default config is used
func GenerateInput(courses, requirements int, seed uint64) (ModelInput, error) {
	random := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	layers := 4

	codes := lo.Times(requirements, func(i int) string { return fmt.Sprintf("R%d", i+1) })
	catalog := make([]Course, 0, courses)
	byLayer := make([][]string, layers)

	for i := range courses {
		id := fmt.Sprintf("C%03d", i+1)
		layer := i * layers / courses

		course := Course{
			Id:       id,
			Name:     fmt.Sprintf("Course %d", i+1),
			Credits:  uint64(3 + random.IntN(2)),
			Fulfills: []string{codes[random.IntN(len(codes))]},
		}
		if layer > 0 && len(byLayer[layer-1]) > 0 && random.Float64() < 0.6 {
			previous := byLayer[layer-1]
			group := lo.Uniq([]string{previous[random.IntN(len(previous))], previous[random.IntN(len(previous))]})
			course.Prerequisites = [][]string{group}
		}

		catalog = append(catalog, course)
		byLayer[layer] = append(byLayer[layer], id)
	}

	requirementList := lo.Map(codes, func(code string, _ int) Requirement {
		fulfilling := lo.CountBy(catalog, func(course Course) bool { return lo.Contains(course.Fulfills, code) })
		return Requirement{Code: code, TotalNeeded: uint64(fulfilling / 2)}
	})

	return NewModelInput(catalog, requirementList, nil, DefaultConfig())
}
