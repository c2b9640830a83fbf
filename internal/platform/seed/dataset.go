package seed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/amma-health/portal/internal/domain/research"
)

// Dataset is a deterministic synthetic cohort for the research
// surface. Real deployments would back research.RecordSource with an
// anonymization pipeline; the portal ships with generated rows so
// researcher queries return something meaningful out of the box.
type Dataset struct {
	records []research.AnonymizedRecord
}

var (
	genders     = []string{"female", "male"}
	regions     = []string{"north", "south", "east", "west"}
	bloodGroups = []string{"A+", "A-", "B+", "B-", "O+", "O-", "AB+", "AB-"}
	conditions  = []string{"diabetes", "hypertension", "asthma", "hypothyroidism", "arthritis"}
)

// NewDataset generates n synthetic anonymized records from a fixed
// seed so test runs and demo environments see the same cohort.
func NewDataset(n int) *Dataset {
	rng := rand.New(rand.NewSource(42))
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	records := make([]research.AnonymizedRecord, 0, n)
	for i := 0; i < n; i++ {
		age := 18 + rng.Intn(70)
		rec := research.AnonymizedRecord{
			ID:         fmt.Sprintf("anon-%04d", i),
			Age:        age,
			AgeGroup:   fmt.Sprintf("%d-%d", age/10*10, age/10*10+9),
			Gender:     genders[rng.Intn(len(genders))],
			Region:     regions[rng.Intn(len(regions))],
			BloodGroup: bloodGroups[rng.Intn(len(bloodGroups))],
			RecordDate: base.AddDate(0, 0, rng.Intn(600)),
		}
		for _, c := range conditions {
			if rng.Float64() < 0.18 {
				rec.Conditions = append(rec.Conditions, c)
			}
		}
		records = append(records, rec)
	}
	return &Dataset{records: records}
}

// AnonymizedRecords implements research.RecordSource.
func (d *Dataset) AnonymizedRecords() []research.AnonymizedRecord {
	out := make([]research.AnonymizedRecord, len(d.records))
	copy(out, d.records)
	return out
}
