// Command admissionsctl ranks spreadsheets offline and seeds periods into a
// running admissions service.
//
//	admissionsctl rank --criteria criteria.yaml --file pendaftar.xlsx --top-n 70
//	admissionsctl seed --api http://localhost:8700 --token $TOKEN --file period.yaml
package main

import (
	"os"

	"github.com/MikeSquared-Agency/Admissions/cmd/admissionsctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
