package trainer

// RidgeOption configures a DeltaRidge trainer.
type RidgeOption func(*DeltaRidge)

// WithRidgeLambda sets the L2 regularization strength.
func WithRidgeLambda(lambda float64) RidgeOption {
	return func(t *DeltaRidge) {
		t.lambda = lambda
	}
}

// WithRBFCenters sets the number of radial basis centers in the descriptor.
func WithRBFCenters(n int) RidgeOption {
	return func(t *DeltaRidge) {
		t.centers = n
	}
}

// WithCutoff sets the descriptor distance cutoff in Angstrom.
func WithCutoff(rc float64) RidgeOption {
	return func(t *DeltaRidge) {
		t.cutoff = rc
	}
}

// WithRMin sets the shortest pair distance covered by the descriptor.
func WithRMin(rMin float64) RidgeOption {
	return func(t *DeltaRidge) {
		t.rMin = rMin
	}
}
