package predictor

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Postprocess converts raw model output into a class index and confidence.
//
// When any score lies outside [0,1] the vector is treated as logits and a
// max-shifted softmax is applied; otherwise the scores are used as-is. The
// confidence is clamped to at most 1.
func Postprocess(scores []float32) (int, float64, error) {
	if len(scores) == 0 {
		return 0, 0, errors.New("empty model output")
	}

	probs := make([]float64, len(scores))
	for i, s := range scores {
		probs[i] = float64(s)
	}
	if floats.HasNaN(probs) {
		return 0, 0, errors.New("model output contains NaN")
	}
	for _, x := range probs {
		if math.IsInf(x, 0) {
			return 0, 0, errors.New("model output contains Inf")
		}
	}

	if !isProbabilities(probs) {
		Softmax(probs)
	}

	idx := floats.MaxIdx(probs)
	conf := math.Min(probs[idx], 1.0)
	if math.IsNaN(conf) {
		return 0, 0, errors.New("model output has no finite confidence")
	}
	return idx, conf, nil
}

// Softmax normalizes v in place. The maximum is subtracted before
// exponentiating to keep the result finite.
func Softmax(v []float64) {
	if len(v) == 0 {
		return
	}
	m := floats.Max(v)
	for i := range v {
		v[i] = math.Exp(v[i] - m)
	}
	floats.Scale(1/floats.Sum(v), v)
}

func isProbabilities(v []float64) bool {
	for _, x := range v {
		if x < 0 || x > 1 {
			return false
		}
	}
	return true
}
