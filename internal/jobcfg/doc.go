// Package jobcfg owns the job-submission configuration surface: a flat,
// dash-keyed key-value document grouped under comment banners (job
// submission, sampler, data generation, plotting). The document is the
// contract between the operator and the sampling pipeline; key names are
// preserved verbatim on both read and write.
package jobcfg
