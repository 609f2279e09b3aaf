package symptomrx

import (
	"fmt"
	"math/rand/v2"
	"sort"
)

// FeatureSpec records how raw symptom columns become the combined feature,
// so a consumer of a saved pipeline can rebuild it from a fresh table.
type FeatureSpec struct {
	Sentinel       string
	SymptomColumns []string
}

// Pipeline is a fitted vectorizer and classifier pair. It is the unit that is
// cross-validated, refit and persisted.
type Pipeline struct {
	Params     Params
	Vocabulary *Vocabulary
	Classifier *Classifier
	Features   FeatureSpec
}

// FitPipeline fits the vocabulary on docs, then the classifier on the transformed docs.
func FitPipeline(docs, labels []string, p Params, opts ClassifierOptions, rng *rand.Rand) (*Pipeline, error) {
	if len(docs) != len(labels) {
		return nil, fmt.Errorf("%d documents but %d labels", len(docs), len(labels))
	}
	vocab, err := FitVocabulary(docs, VectorizerOptions{NGram: p.NGram, StopWords: StopWordsEnglish})
	if err != nil {
		return nil, fmt.Errorf("fit vocabulary: %w", err)
	}
	clf, err := FitClassifier(vocab.Transform(docs), vocab.Size(), labels, p, opts, rng)
	if err != nil {
		return nil, fmt.Errorf("fit classifier: %w", err)
	}
	return &Pipeline{
		Params:     p,
		Vocabulary: vocab,
		Classifier: clf,
		Features:   FeatureSpec{Sentinel: DefaultSentinel},
	}, nil
}

// Classes returns the labels the pipeline can emit, in lexical order.
func (p *Pipeline) Classes() []string {
	return cloneStrings(p.Classifier.Classes)
}

// Predict returns the medicine label for a combined feature string.
func (p *Pipeline) Predict(text string) string {
	return p.Classifier.Predict(p.Vocabulary.TransformOne(text))
}

// PredictBatch predicts every text in order.
func (p *Pipeline) PredictBatch(texts []string) []string {
	out := make([]string, len(texts))
	for i, text := range texts {
		out[i] = p.Predict(text)
	}
	return out
}

// PredictRecord combines the record's symptoms with the pipeline's sentinel and predicts.
func (p *Pipeline) PredictRecord(rec Record) string {
	return p.Predict(Combine(rec, p.sentinel()))
}

// PredictProba returns per-class probabilities ordered from most to least likely.
func (p *Pipeline) PredictProba(text string) []ClassScore {
	scores := p.Classifier.Probabilities(p.Vocabulary.TransformOne(text))
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	return scores
}

func (p *Pipeline) sentinel() string {
	if p.Features.Sentinel == "" {
		return DefaultSentinel
	}
	return p.Features.Sentinel
}
