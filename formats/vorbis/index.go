// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/ik5/audplay/internal/ogg"
)

// pageEntry marks the start of an audio page and the granule position it
// ends at.
type pageEntry struct {
	offset  int64
	granule int64
}

// section is one logical Vorbis bitstream of a chained file.
type section struct {
	serial uint32
	// offset of the BOS page.
	offset int64
	id     identification
	pages  []pageEntry
	// samples is the highest granule position seen.
	samples int64
	start   time.Duration
}

func (s section) duration() time.Duration {
	if s.id.SampleRate <= 0 {
		return 0
	}

	return time.Duration(s.samples) * time.Second / time.Duration(s.id.SampleRate)
}

// pageFor returns the index of the last page ending at or before sample,
// or -1.
func (s section) pageFor(sample int64) int {
	i := sort.Search(len(s.pages), func(i int) bool { return s.pages[i].granule > sample })

	return i - 1
}

// scanSections walks every page header of r and indexes the Vorbis
// sections. Pages of other logical streams are ignored.
func scanSections(r io.Reader) ([]section, error) {
	var (
		sections []section
		bySerial = make(map[uint32]int)
		scan     = ogg.NewScanner(r, 0)
	)

	for {
		p, err := scan.NextPage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sections, fmt.Errorf("scan: %w", err)
		}

		if p.BOS() {
			if id, ok := parseIdentification(p.Data); ok {
				bySerial[p.Serial] = len(sections)
				sections = append(sections, section{serial: p.Serial, offset: p.Offset, id: id})
			}
			continue
		}

		i, ok := bySerial[p.Serial]
		if !ok || p.Granule <= 0 {
			continue
		}

		s := &sections[i]
		s.pages = append(s.pages, pageEntry{offset: p.Offset, granule: p.Granule})
		if p.Granule > s.samples {
			s.samples = p.Granule
		}
		if p.EOS() {
			// Serials may be reused by a later chain.
			delete(bySerial, p.Serial)
		}
	}

	var start time.Duration
	for i := range sections {
		sections[i].start = start
		start += sections[i].duration()
	}

	return sections, nil
}

func totalDuration(sections []section) time.Duration {
	if len(sections) == 0 {
		return 0
	}

	last := sections[len(sections)-1]

	return last.start + last.duration()
}

// sectionAt returns the section playing at t.
func sectionAt(sections []section, t time.Duration) int {
	i := sort.Search(len(sections), func(i int) bool { return sections[i].start > t })
	if i == 0 {
		return 0
	}

	return i - 1
}
