package ranking

import (
	"slices"

	"go.uber.org/zap"

	"github.com/focusrank/focusrank/internal/textutil"
	"github.com/focusrank/focusrank/pkg/window"
)

// TitleSimilarity scores background windows by the tf-idf cosine similarity of
// their title to the focused window's title.
//
// The vector space is rebuilt from every tracked title on each change, since a
// new title changes the document frequency of every term. Unlike the other
// models it notifies on every recomputation, whether or not the top windows
// moved.
type TitleSimilarity struct {
	logger *zap.Logger

	titles  map[window.Handle][]string
	scores  ScoreMap
	current window.Handle

	changed notifier
}

// NewTitleSimilarity creates the model and subscribes it to hub
func NewTitleSimilarity(hub *window.Hub, opts ...Option) *TitleSimilarity {
	o := newOptions(opts)
	t := &TitleSimilarity{
		logger: o.logger.Named("title_similarity"),
		titles: make(map[window.Handle][]string),
		scores: make(ScoreMap),
	}
	hub.OnSetup(t.setup)
	hub.OnOpened(t.onOpened)
	hub.OnFocused(t.onFocused)
	hub.OnClosedOrMinimized(t.onClosedOrMinimized)
	hub.OnRenamed(t.onRenamed)
	return t
}

// Name identifies the model in detailed scores and metrics
func (t *TitleSimilarity) Name() string {
	return "TitleSimilarity"
}

// GetScores returns a copy of the current scores
func (t *TitleSimilarity) GetScores() ScoreMap {
	return t.scores.Clone()
}

// OnScoreChanged registers fn to be called after every recomputation
func (t *TitleSimilarity) OnScoreChanged(fn func()) {
	t.changed.subscribe(fn)
}

func (t *TitleSimilarity) setup(records []window.Record) {
	if len(records) == 0 {
		return
	}
	t.current = records[0].Handle
	clear(t.titles)
	for _, r := range records {
		t.setTitle(r)
	}
	t.scores = t.calculate()
}

func (t *TitleSimilarity) onOpened(record window.Record) {
	t.current = record.Handle
	t.setTitle(record)
	t.recalculate()
}

func (t *TitleSimilarity) onFocused(record window.Record) {
	t.current = record.Handle
	if _, ok := t.titles[record.Handle]; !ok {
		t.setTitle(record)
	}
	t.recalculate()
}

func (t *TitleSimilarity) onClosedOrMinimized(record window.Record) {
	_, scored := t.scores[record.Handle]
	delete(t.titles, record.Handle)
	if scored || record.Handle == t.current {
		t.recalculate()
	}
}

func (t *TitleSimilarity) onRenamed(record window.Record) {
	prepared := textutil.PrepareTitle(record.Title)
	previous, ok := t.titles[record.Handle]
	if ok && slices.Equal(previous, prepared) {
		return
	}
	if !ok && len(prepared) == 0 {
		return
	}
	t.setTitle(record)
	t.recalculate()
}

// setTitle stores the prepared title, or forgets the window when nothing usable
// is left of it
func (t *TitleSimilarity) setTitle(record window.Record) {
	prepared := textutil.PrepareTitle(record.Title)
	if len(prepared) == 0 {
		delete(t.titles, record.Handle)
		return
	}
	t.titles[record.Handle] = prepared
}

func (t *TitleSimilarity) recalculate() {
	t.scores = t.calculate()
	t.logger.Debug("scores recalculated",
		zap.Stringer("current", t.current),
		zap.Int("titles", len(t.titles)),
		zap.Int("scored", len(t.scores)),
	)
	t.changed.notify()
}

func (t *TitleSimilarity) calculate() ScoreMap {
	current, ok := t.titles[t.current]
	if !ok {
		return make(ScoreMap)
	}

	handles := make([]window.Handle, 0, len(t.titles))
	for h := range t.titles {
		if h != t.current {
			handles = append(handles, h)
		}
	}
	slices.Sort(handles)

	// The empty document keeps terms shared by every title from getting a zero
	// inverse document frequency.
	docs := make([][]string, 0, len(handles)+2)
	for _, h := range handles {
		docs = append(docs, t.titles[h])
	}
	docs = append(docs, nil, current)

	vectors := textutil.Vectorize(docs)
	currentVector := vectors[len(vectors)-1]

	scores := make(ScoreMap)
	for i, h := range handles {
		if similarity := textutil.CosineSimilarity(vectors[i], currentVector); similarity > 0 {
			scores[h] = similarity
		}
	}
	return scores
}
