package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/sarchlab/hybridpolicy/mem/accesstrace"
	"github.com/sarchlab/hybridpolicy/mem/cache/replacement"
	"github.com/sarchlab/hybridpolicy/mem/cache/tagging"
)

// summary is what the host cache saw during a replay.
type summary struct {
	Accesses       uint64
	Hits           uint64
	Misses         uint64
	Evictions      uint64
	DirtyEvictions uint64
	Report         replacement.RunReport
}

// replay feeds every request of the trace into the tag array.
func replay(reader *accesstrace.Reader, tags tagging.TagArray) (summary, error) {
	s := summary{}

	for {
		req, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return s, nil
		}

		if err != nil {
			return s, err
		}

		result := tags.Access(req)

		s.Accesses++
		if result.Hit {
			s.Hits++
			continue
		}

		s.Misses++
		if result.Evicted {
			s.Evictions++
			if result.EvictedDirty {
				s.DirtyEvictions++
			}
		}
	}
}

func (s summary) hitRate() float64 {
	if s.Accesses == 0 {
		return 0
	}

	return float64(s.Hits) / float64(s.Accesses)
}

func (s summary) print(w io.Writer) {
	fmt.Fprintf(w, "accesses: %d\n", s.Accesses)
	fmt.Fprintf(w, "hits: %d\n", s.Hits)
	fmt.Fprintf(w, "misses: %d\n", s.Misses)
	fmt.Fprintf(w, "hit rate: %.4f\n", s.hitRate())
	fmt.Fprintf(w, "evictions: %d (%d dirty)\n", s.Evictions, s.DirtyEvictions)
	fmt.Fprintf(w, "lru victims: %d\n", s.Report.LRUVictims)
	fmt.Fprintf(w, "rrpv victims: %d\n", s.Report.RRPVVictims)
	fmt.Fprintf(w, "rrpv aging rounds: %d\n", s.Report.AgingRounds)
	fmt.Fprintf(w, "rrpv fallbacks: %d\n", s.Report.Fallbacks)
	fmt.Fprintf(w, "high contention sets: %d\n", s.Report.HighContentionSets)
}
