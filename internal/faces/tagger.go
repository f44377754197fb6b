// Package faces assigns stable person tags to detected faces by
// matching face embeddings against the owner's previously tagged
// faces.
package faces

import (
	"regexp"
	"strconv"

	"github.com/taglens/taglens/internal/database"
)

// MatchThreshold is the minimum cosine similarity for a detected face
// to reuse an existing person tag.
const MatchThreshold = 0.45

var personTagPattern = regexp.MustCompile(`^person_(\d+)$`)

// Tagger assigns person tags within a single owner's library. Not safe
// for concurrent use; build one per tagging call.
type Tagger struct {
	known   []database.KnownFace
	nextNum int
}

// NewTagger seeds the tagger with the owner's stored faces. The next
// minted tag number is one past the highest person_N seen, regardless
// of which numbers are still in use.
func NewTagger(known []database.KnownFace) *Tagger {
	t := &Tagger{known: known, nextNum: 1}
	for _, f := range known {
		if n, ok := personNumber(f.Tag); ok && n >= t.nextNum {
			t.nextNum = n + 1
		}
	}
	return t
}

// Assign tags each detected face: the best match at or above the
// threshold reuses that tag, otherwise a new person_N tag is minted.
// Faces tagged earlier in the same call are matchable by later ones.
// Detections without an embedding are dropped; they can never match
// anyone and minting an identity for them would burn a person number
// on every ingest.
func (t *Tagger) Assign(detections []database.FaceDetection) []database.FaceTag {
	tags := make([]database.FaceTag, 0, len(detections))
	for _, det := range detections {
		if len(det.Embedding) == 0 {
			continue
		}
		tag := t.bestMatch(det.Embedding)
		if tag == "" {
			tag = "person_" + strconv.Itoa(t.nextNum)
			t.nextNum++
		}
		t.known = append(t.known, database.KnownFace{Tag: tag, Embedding: det.Embedding})
		tags = append(tags, database.FaceTag{
			BBox:      det.BBox,
			Tag:       tag,
			Embedding: det.Embedding,
		})
	}
	return tags
}

// bestMatch returns the tag of the most similar known face at or above
// the threshold, or "" when none qualifies. Dimension mismatches score
// zero and therefore never match.
func (t *Tagger) bestMatch(embedding []float32) string {
	best := ""
	bestScore := float64(MatchThreshold)
	for _, f := range t.known {
		score := database.CosineSimilarity(embedding, f.Embedding)
		if score > bestScore || (score == bestScore && best == "") {
			best = f.Tag
			bestScore = score
		}
	}
	return best
}

func personNumber(tag string) (int, bool) {
	m := personTagPattern.FindStringSubmatch(tag)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}
