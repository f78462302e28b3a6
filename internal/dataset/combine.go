package dataset

import (
	"math/rand"

	"github.com/verte-zerg/morsetrain/internal/model"
)

// Combine concatenates corpora into one. Run ids are renumbered so runs from
// different inputs never merge.
func Combine(corpora ...model.Corpus) model.Corpus {
	out := model.Corpus{Policy: model.PolicyCombined}
	offset := 0
	for i, c := range corpora {
		if i == 0 {
			out.Seed, out.Sigma = c.Seed, c.Sigma
			out.MinWPM, out.MaxWPM = c.MinWPM, c.MaxWPM
		}
		if c.MinWPM < out.MinWPM {
			out.MinWPM = c.MinWPM
		}
		if c.MaxWPM > out.MaxWPM {
			out.MaxWPM = c.MaxWPM
		}
		next := offset
		for _, e := range c.Elements {
			e.Run += offset
			if e.Run >= next {
				next = e.Run + 1
			}
			out.Elements = append(out.Elements, e)
		}
		offset = next
	}
	return out
}

// Shuffle returns a permuted copy of corpus. The result has no temporal order
// left, so every element is placed in its own run.
func Shuffle(corpus model.Corpus, rnd *rand.Rand) model.Corpus {
	out := corpus
	out.Elements = make([]model.TimingElement, len(corpus.Elements))
	copy(out.Elements, corpus.Elements)
	rnd.Shuffle(len(out.Elements), func(i, j int) {
		out.Elements[i], out.Elements[j] = out.Elements[j], out.Elements[i]
	})
	for i := range out.Elements {
		out.Elements[i].Run = i
	}
	return out
}
