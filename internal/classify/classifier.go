package classify

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/dgallion1/noteloop/internal/notes"
)

// Kind routes a chunk: update an existing section, create a new one, or
// defer to a human.
type Kind string

const (
	KindUpdate    Kind = "update"
	KindCreate    Kind = "create"
	KindUncertain Kind = "uncertain"
)

// Decision is the classifier's output for one chunk. For KindUpdate, Heading
// names the matched section. For KindUncertain, Heading and Similarity carry
// the best candidate (Heading may be empty when nothing scored above the
// floor) and Reason is always non-empty.
type Decision struct {
	Kind       Kind
	Heading    string
	Similarity float64
	Reason     string
}

// Classifier scores chunks against the document's sections with an embedding
// nearest-neighbor search and applies the certainty rule: confident matches
// update, clearly unrelated chunks create, everything in between (or any
// hedge language) defers to a human.
type Classifier struct {
	db        *chromem.DB
	embed     chromem.EmbeddingFunc
	confident float64
	floor     float64
	log       *slog.Logger

	mu sync.Mutex
}

func New(embed chromem.EmbeddingFunc, confident, floor float64, log *slog.Logger) *Classifier {
	return &Classifier{
		db:        chromem.NewDB(),
		embed:     embed,
		confident: confident,
		floor:     floor,
		log:       log,
	}
}

func collectionName(project string) string {
	return "sections-" + notes.Slugify(project)
}

// Sync rebuilds the project's section collection from the current document.
// Section identity is heading text, so every rewrite re-embeds from scratch;
// renames simply show up as fresh entries.
func (c *Classifier) Sync(ctx context.Context, project, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncLocked(ctx, project, content)
}

func (c *Classifier) syncLocked(ctx context.Context, project, content string) error {
	name := collectionName(project)
	_ = c.db.DeleteCollection(name)
	coll, err := c.db.CreateCollection(name, map[string]string{"project": project}, c.embed)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	var docs []chromem.Document
	for _, s := range notes.Index(content) {
		// The document title is not a matchable section.
		if s.Level == 1 && s.Heading == project {
			continue
		}
		text := s.Heading + ": " + s.Body(content)
		docs = append(docs, chromem.Document{
			ID:       sectionID(s.Heading, s.Start),
			Content:  text,
			Metadata: map[string]string{"heading": s.Heading},
		})
	}
	if len(docs) == 0 {
		return nil
	}
	if err := coll.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("add section documents: %w", err)
	}
	c.log.Debug("section index synced", "project", project, "sections", len(docs))
	return nil
}

// Classify decides how chunk relates to the current document content.
// The embedding call is the only failure mode; hedged chunks never fail
// because their decision does not depend on the score.
func (c *Classifier) Classify(ctx context.Context, project, content, chunk string) (Decision, error) {
	hedged, reason := DetectHedge(chunk)

	heading, score, err := c.nearestSection(ctx, project, content, chunk)
	if err != nil {
		if hedged {
			return Decision{Kind: KindUncertain, Reason: reason}, nil
		}
		return Decision{}, fmt.Errorf("similarity search: %w", err)
	}

	c.log.Info("chunk classified",
		"project", project,
		"hedged", hedged,
		"similarity", fmt.Sprintf("%.3f", score),
		"candidate", heading,
	)

	if hedged {
		d := Decision{Kind: KindUncertain, Reason: reason}
		if score >= c.floor {
			d.Heading = heading
			d.Similarity = score
		}
		return d, nil
	}
	switch {
	case score >= c.confident:
		return Decision{Kind: KindUpdate, Heading: heading, Similarity: score}, nil
	case score < c.floor:
		return Decision{Kind: KindCreate, Similarity: score}, nil
	default:
		return Decision{
			Kind:       KindUncertain,
			Heading:    heading,
			Similarity: score,
			Reason:     "ambiguous section match",
		}, nil
	}
}

// nearestSection returns the best-matching section heading and its cosine
// similarity, or ("", 0) when the document has no matchable sections.
func (c *Classifier) nearestSection(ctx context.Context, project, content, chunk string) (string, float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.syncLocked(ctx, project, content); err != nil {
		return "", 0, err
	}
	coll := c.db.GetCollection(collectionName(project), c.embed)
	if coll == nil || coll.Count() == 0 {
		return "", 0, nil
	}
	results, err := coll.Query(ctx, chunk, 1, nil, nil)
	if err != nil {
		return "", 0, err
	}
	if len(results) == 0 {
		return "", 0, nil
	}
	return results[0].Metadata["heading"], float64(results[0].Similarity), nil
}

func sectionID(heading string, pos int) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s:%d", heading, pos))
	return fmt.Sprintf("%x", sum[:6])
}
