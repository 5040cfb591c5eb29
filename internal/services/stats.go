package services

import (
	"math"
	"sort"

	"github.com/commercelab/retail-analytics/internal/models"
)

// Statistical helpers shared by the A/B test engine. All routines work
// on customer-level float slices and report degeneracy explicitly
// instead of returning fabricated values.

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// variance is the sample variance (n-1 denominator).
func variance(values []float64, mean float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		diff := v - mean
		sum += diff * diff
	}
	return sum / float64(len(values)-1)
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// studentTTest runs an independent two-sample Student's t-test assuming
// equal variances (pooled). Groups of fewer than two observations or a
// zero pooled variance yield an indeterminate result.
func studentTTest(group1, group2 []float64, alpha float64) models.TTestResult {
	n1, n2 := len(group1), len(group2)
	if n1 < 2 || n2 < 2 {
		return models.TTestResult{Indeterminate: true}
	}

	m1, m2 := mean(group1), mean(group2)
	v1, v2 := variance(group1, m1), variance(group2, m2)
	df := float64(n1 + n2 - 2)
	pooled := (float64(n1-1)*v1 + float64(n2-1)*v2) / df
	if pooled == 0 {
		return models.TTestResult{Indeterminate: true}
	}

	t := (m1 - m2) / math.Sqrt(pooled*(1/float64(n1)+1/float64(n2)))
	p := tTestPValue(t, df)

	return models.TTestResult{
		TStat:       t,
		PValue:      p,
		Significant: p < alpha,
	}
}

// cohensD is the standardized mean difference (group1 - group2) over
// the pooled standard deviation. Returns 0 when the pooled variance is
// zero; the paired t-test result already flags that case.
func cohensD(group1, group2 []float64) float64 {
	n1, n2 := len(group1), len(group2)
	if n1 < 2 || n2 < 2 {
		return 0
	}
	m1, m2 := mean(group1), mean(group2)
	v1, v2 := variance(group1, m1), variance(group2, m2)
	pooled := math.Sqrt((float64(n1-1)*v1 + float64(n2-1)*v2) / float64(n1+n2-2))
	if pooled == 0 {
		return 0
	}
	return (m1 - m2) / pooled
}

// confidenceInterval computes mean +/- t*(n-1) x SEM at the given
// confidence level.
func confidenceInterval(values []float64, confidence float64) models.ConfidenceInterval {
	n := len(values)
	if n < 2 {
		return models.ConfidenceInterval{Mean: mean(values), Indeterminate: true}
	}
	m := mean(values)
	sem := math.Sqrt(variance(values, m) / float64(n))
	margin := sem * tCriticalValue(confidence, float64(n-1))
	return models.ConfidenceInterval{Mean: m, Lower: m - margin, Upper: m + margin}
}

// chiSquare2x2 tests independence of group membership and repeat status
// on a 2x2 contingency table with Yates continuity correction. Rows are
// groups, columns are (repeat, non-repeat) counts.
func chiSquare2x2(a, b, c, d int, alpha float64) models.ChiSquareResult {
	row1 := float64(a + b)
	row2 := float64(c + d)
	col1 := float64(a + c)
	col2 := float64(b + d)
	n := row1 + row2
	if row1 == 0 || row2 == 0 || col1 == 0 || col2 == 0 {
		return models.ChiSquareResult{Indeterminate: true}
	}

	diff := math.Abs(float64(a)*float64(d)-float64(b)*float64(c)) - n/2
	if diff < 0 {
		diff = 0
	}
	chi2 := n * diff * diff / (row1 * row2 * col1 * col2)

	// Survival function of chi-square with one degree of freedom.
	p := math.Erfc(math.Sqrt(chi2 / 2))

	return models.ChiSquareResult{
		ChiSquare:   chi2,
		PValue:      p,
		Significant: p < alpha,
	}
}

// tTestPValue is the two-sided p-value for a t statistic at df degrees
// of freedom, via the regularized incomplete beta identity
// p = I_{df/(df+t^2)}(df/2, 1/2).
func tTestPValue(t, df float64) float64 {
	x := df / (df + t*t)
	return regIncompleteBeta(df/2, 0.5, x)
}

// tCriticalValue is the two-sided critical value t* with
// P(|T| <= t*) = confidence, found by bisection on the p-value. The
// p-value is strictly decreasing in t, so bisection converges.
func tCriticalValue(confidence, df float64) float64 {
	target := 1 - confidence
	lo, hi := 0.0, 1000.0
	for i := 0; i < 200; i++ {
		mid := (lo + hi) / 2
		if tTestPValue(mid, df) > target {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

// regIncompleteBeta is the regularized incomplete beta function
// I_x(a, b), evaluated with the continued fraction expansion.
func regIncompleteBeta(a, b, x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}

	lgab, _ := math.Lgamma(a + b)
	lga, _ := math.Lgamma(a)
	lgb, _ := math.Lgamma(b)
	front := math.Exp(lgab - lga - lgb + a*math.Log(x) + b*math.Log(1-x))

	if x < (a+1)/(a+b+2) {
		return front * betaContinuedFraction(a, b, x) / a
	}
	return 1 - front*betaContinuedFraction(b, a, 1-x)/b
}

// betaContinuedFraction evaluates the incomplete beta continued
// fraction by the modified Lentz method.
func betaContinuedFraction(a, b, x float64) float64 {
	const (
		maxIterations = 300
		epsilon       = 3e-14
		tiny          = 1e-300
	)

	qab := a + b
	qap := a + 1
	qam := a - 1

	c := 1.0
	d := 1 - qab*x/qap
	if math.Abs(d) < tiny {
		d = tiny
	}
	d = 1 / d
	result := d

	for m := 1; m <= maxIterations; m++ {
		fm := float64(m)
		m2 := 2 * fm

		num := fm * (b - fm) * x / ((qam + m2) * (a + m2))
		d = 1 + num*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + num/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		result *= d * c

		num = -(a + fm) * (qab + fm) * x / ((a + m2) * (qap + m2))
		d = 1 + num*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + num/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		delta := d * c
		result *= delta

		if math.Abs(delta-1) < epsilon {
			break
		}
	}
	return result
}
