package models

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrNotConverged is returned when Newton iterations hit MaxIter.
var ErrNotConverged = errors.New("logistic regression did not converge")

// LogisticRegression minimizes the log-loss plus an L2 penalty of 1/(2C) on
// the coefficients. The intercept is not penalized. It is fitted by Newton's
// method with step halving.
type LogisticRegression struct {
	BaseModel
	C         float64
	MaxIter   int
	Tol       float64
	Coef      []float64
	Intercept float64
	Iter      int

	fitted bool
}

func NewLogisticRegression(c float64, maxIter int) *LogisticRegression {
	if c <= 0 {
		c = 1
	}
	if maxIter <= 0 {
		maxIter = 100
	}
	return &LogisticRegression{
		C:       c,
		MaxIter: maxIter,
		Tol:     1e-8,
		BaseModel: BaseModel{
			Name: "LogisticRegression",
			Params: Params{
				"max_iter": maxIter,
			},
		},
	}
}

func (lr *LogisticRegression) Clone() Model {
	clone := NewLogisticRegression(lr.C, lr.MaxIter)
	clone.Tol = lr.Tol
	return clone
}

func (lr *LogisticRegression) Fit(X mat.Matrix, y []int) error {
	if err := validateTraining(X, y); err != nil {
		return err
	}
	if len(ExtractClasses(y)) < 2 {
		return fmt.Errorf("training labels contain a single class")
	}
	lr.Classes = []int{0, 1}

	n, p := X.Dims()
	// Design matrix with a trailing intercept column.
	A := mat.NewDense(n, p+1, nil)
	A.Slice(0, n, 0, p).(*mat.Dense).Copy(X)
	for i := 0; i < n; i++ {
		A.Set(i, p, 1)
	}
	target := make([]float64, n)
	for i, label := range y {
		target[i] = float64(label)
	}

	lambda := 1 / lr.C
	beta := mat.NewVecDense(p+1, nil)
	z := mat.NewVecDense(n, nil)
	resid := mat.NewVecDense(n, nil)
	grad := mat.NewVecDense(p+1, nil)
	step := mat.NewVecDense(p+1, nil)
	scaled := mat.NewDense(n, p+1, nil)
	hess := mat.NewSymDense(p+1, nil)
	var chol mat.Cholesky

	objective := lr.objective(A, target, beta, lambda, z)
	for iter := 1; iter <= lr.MaxIter; iter++ {
		z.MulVec(A, beta)
		scaled.Copy(A)
		for i := 0; i < n; i++ {
			prob := sigmoid(z.AtVec(i))
			resid.SetVec(i, prob-target[i])
			w := math.Max(prob*(1-prob), 1e-12)
			floats.Scale(math.Sqrt(w), scaled.RawRowView(i))
		}

		grad.MulVec(A.T(), resid)
		hess.SymOuterK(1, scaled.T())
		for j := 0; j < p; j++ {
			grad.SetVec(j, grad.AtVec(j)+lambda*beta.AtVec(j))
			hess.SetSym(j, j, hess.At(j, j)+lambda)
		}

		if ok := chol.Factorize(hess); !ok {
			return fmt.Errorf("hessian is not positive definite at iteration %d", iter)
		}
		if err := chol.SolveVecTo(step, grad); err != nil {
			return fmt.Errorf("solving newton step: %w", err)
		}

		t := 1.0
		candidate := mat.NewVecDense(p+1, nil)
		for {
			candidate.AddScaledVec(beta, -t, step)
			next := lr.objective(A, target, candidate, lambda, z)
			if next <= objective || t < 1e-10 {
				objective = next
				break
			}
			t /= 2
		}
		beta.CopyVec(candidate)

		if t*mat.Norm(step, math.Inf(1)) < lr.Tol {
			lr.Iter = iter
			lr.Coef = make([]float64, p)
			for j := range lr.Coef {
				lr.Coef[j] = beta.AtVec(j)
			}
			lr.Intercept = beta.AtVec(p)
			lr.fitted = true
			return nil
		}
	}
	return fmt.Errorf("%w after %d iterations", ErrNotConverged, lr.MaxIter)
}

// objective evaluates the penalized loss at beta, using z as scratch.
func (lr *LogisticRegression) objective(A *mat.Dense, target []float64, beta *mat.VecDense, lambda float64, z *mat.VecDense) float64 {
	z.MulVec(A, beta)
	loss := 0.0
	for i, t := range target {
		zi := z.AtVec(i)
		loss += softplus(zi) - t*zi
	}
	penalty := 0.0
	for j := 0; j < beta.Len()-1; j++ {
		penalty += beta.AtVec(j) * beta.AtVec(j)
	}
	return loss + 0.5*lambda*penalty
}

func (lr *LogisticRegression) PredictProba(X mat.Matrix) ([]float64, error) {
	if !lr.fitted {
		return nil, ErrNotFitted
	}
	if err := checkWidth(X, len(lr.Coef)); err != nil {
		return nil, err
	}

	r, _ := X.Dims()
	z := mat.NewVecDense(r, nil)
	z.MulVec(X, mat.NewVecDense(len(lr.Coef), lr.Coef))
	proba := make([]float64, r)
	for i := range proba {
		proba[i] = sigmoid(z.AtVec(i) + lr.Intercept)
	}
	return proba, nil
}

func (lr *LogisticRegression) Predict(X mat.Matrix) ([]int, error) {
	proba, err := lr.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return threshold(proba), nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus is log(1 + exp(z)) without overflow.
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}
