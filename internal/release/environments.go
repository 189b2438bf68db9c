package release

import "deploynotify/internal/types"

// Environments is the ordered environment table decoded from DISTRIBUTIONS.
type Environments []types.Environment

// Find returns the first environment whose bucket equals b's ARN.
func (e Environments) Find(b types.Bucket) (types.Environment, bool) {
	for _, env := range e {
		if env.Bucket == b.ARN {
			return env, true
		}
	}
	return types.Environment{}, false
}
