// SPDX-License-Identifier: EPL-2.0

package mp4

import (
	"encoding/binary"
	"strings"
)

// Tags is the subset of iTunes metadata the player shows.
type Tags struct {
	Title   string
	Artist  string
	Album   string
	Date    string
	Genre   string
	Comment string
	Track   int
}

// id3v1Genres is indexed by gnre value minus one.
var id3v1Genres = []string{
	"Blues", "Classic Rock", "Country", "Dance", "Disco", "Funk", "Grunge",
	"Hip-Hop", "Jazz", "Metal", "New Age", "Oldies", "Other", "Pop", "R&B",
	"Rap", "Reggae", "Rock", "Techno", "Industrial", "Alternative", "Ska",
	"Death Metal", "Pranks", "Soundtrack", "Euro-Techno", "Ambient",
	"Trip-Hop", "Vocal", "Jazz+Funk", "Fusion", "Trance", "Classical",
	"Instrumental", "Acid", "House", "Game", "Sound Clip", "Gospel", "Noise",
	"AlternRock", "Bass", "Soul", "Punk", "Space", "Meditative",
	"Instrumental Pop", "Instrumental Rock", "Ethnic", "Gothic", "Darkwave",
	"Techno-Industrial", "Electronic", "Pop-Folk", "Eurodance", "Dream",
	"Southern Rock", "Comedy", "Cult", "Gangsta", "Top 40", "Christian Rap",
	"Pop/Funk", "Jungle", "Native American", "Cabaret", "New Wave",
	"Psychadelic", "Rave", "Showtunes", "Trailer", "Lo-Fi", "Tribal",
	"Acid Punk", "Acid Jazz", "Polka", "Retro", "Musical", "Rock & Roll",
	"Hard Rock",
}

// Genre returns the ID3v1 genre name for a gnre atom value.
func Genre(n int) string {
	if n < 1 || n > len(id3v1Genres) {
		return ""
	}

	return id3v1Genres[n-1]
}

func parseTags(udta []byte) Tags {
	var tags Tags

	ilst, ok := path(udta, "meta", "ilst")
	if !ok {
		return tags
	}

	items, err := children(ilst)
	if err != nil && len(items) == 0 {
		return tags
	}

	for _, item := range items {
		data, ok := itemData(item.payload)
		if !ok {
			continue
		}

		switch item.typ {
		case "\xa9nam":
			tags.Title = text(data)
		case "\xa9ART", "aART":
			if tags.Artist == "" || item.typ == "\xa9ART" {
				tags.Artist = text(data)
			}
		case "\xa9alb":
			tags.Album = text(data)
		case "\xa9day":
			tags.Date = text(data)
		case "\xa9gen":
			tags.Genre = text(data)
		case "\xa9cmt":
			tags.Comment = text(data)
		case "gnre":
			if tags.Genre == "" && len(data) >= 2 {
				tags.Genre = Genre(int(binary.BigEndian.Uint16(data)))
			}
		case "trkn":
			if len(data) >= 4 {
				tags.Track = int(binary.BigEndian.Uint16(data[2:4]))
			}
		}
	}

	return tags
}

// itemData returns the value of the data box inside an ilst item, without
// its type and locale fields.
func itemData(item []byte) ([]byte, bool) {
	kids, _ := children(item)

	d, ok := find(kids, "data")
	if !ok || len(d.payload) < 8 {
		return nil, false
	}

	return d.payload[8:], true
}

func text(b []byte) string {
	return strings.TrimRight(string(b), "\x00")
}
