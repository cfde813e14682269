// Package brief groups a run's events into the digest sections readers
// actually scan: big movers first, then the recurring deal categories.
package brief

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/safarai/intelwatch/app/database"
)

const (
	// TopMoverThreshold is the materiality score at which an event
	// qualifies for the Top Movers section.
	TopMoverThreshold = 70

	// DisplayLimit caps how many events a rendered section shows. The
	// stored section keeps every qualifying event; the cap applies at
	// render time only.
	DisplayLimit = 5
)

const (
	SectionTopMovers    = "Top Movers"
	SectionPartnerships = "Partnerships"
	SectionFunding      = "Funding & Investments"
	SectionCampaigns    = "Campaigns & Deals"
)

// Assembler builds a brief from a run's final event set. Assembly is a
// pure function of its inputs: the same events always produce the same
// sections, in the same order.
type Assembler struct{}

func NewAssembler() *Assembler {
	return &Assembler{}
}

// Assemble produces the brief for one run. Sections are not mutually
// exclusive: a high-scoring partnership appears under both Top Movers and
// Partnerships. Sections with no qualifying events are omitted.
func (a *Assembler) Assemble(runID string, events []database.Event) database.Brief {
	ordered := make([]database.Event, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Score != ordered[j].Score {
			return ordered[i].Score > ordered[j].Score
		}
		return ordered[i].Seq < ordered[j].Seq
	})

	sections := make([]database.BriefSection, 0, 4)
	add := func(name string, include func(database.Event) bool) {
		var ids []string
		for _, event := range ordered {
			if include(event) {
				ids = append(ids, event.ID)
			}
		}
		if len(ids) > 0 {
			sections = append(sections, database.BriefSection{Name: name, EventIDs: ids})
		}
	}

	add(SectionTopMovers, func(e database.Event) bool { return e.Score >= TopMoverThreshold })
	add(SectionPartnerships, func(e database.Event) bool { return e.Type == database.EventTypePartnership })
	add(SectionFunding, func(e database.Event) bool { return e.Type == database.EventTypeFunding })
	add(SectionCampaigns, func(e database.Event) bool { return e.Type == database.EventTypeCampaignDeal })

	return database.Brief{
		ID:        uuid.NewString(),
		RunID:     runID,
		Sections:  sections,
		CreatedAt: time.Now().UTC(),
	}
}
