// Package prior implements the prior-distribution expression language used
// by the training and job-submission configuration surfaces.
//
// A prior is written as a constructor expression, optionally qualified,
// with keyword arguments:
//
//	Uniform(minimum=100.0, maximum=6000.0)
//	bilby.core.prior.Cosine(name='dec')
//	default
//
// The keyword `default` resolves to the standard prior for the parameter it
// is attached to. Parsed keyword arguments are carried as cty.Value so the
// engine shares one typed value representation across config formats.
package prior
