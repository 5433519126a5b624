package cityvec

import "github.com/kailas-cloud/cityvec/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrConfiguration = domain.ErrConfiguration
	ErrConnection    = domain.ErrConnection
	ErrIngestion     = domain.ErrIngestion
	ErrBuild         = domain.ErrBuild
	ErrModel         = domain.ErrModel
	ErrEmptyCorpus   = domain.ErrEmptyCorpus
	ErrInvalidQuery  = domain.ErrInvalidQuery
)
