// Package fuzzy classifies emission densities into the six severity classes
// with trapezoidal membership functions anchored on the distribution of each
// gas.
//
// For one gas the classifier computes the 10th, 35th, 65th, 85th and 97th
// percentiles of the density values together with their min and max, and
// places one trapezoid per class between consecutive boundaries:
//
//	Good            (min,   min, q10, q10+d)
//	Moderate        (q10−d, q10, q35, q35+d)
//	USG             (q35−d, q35, q65, q65+d)
//	Unhealthy       (q65−d, q65, q85, q85+d)
//	Very Unhealthy  (q85−d, q85, q97, q97+d)
//	Hazardous       (q97−d, q97, max, max)
//
// The shoulder d = smoothFrac·(max−min) makes adjacent classes overlap. A
// value gets the class of highest membership; exact ties go to the most
// severe class.
package fuzzy
