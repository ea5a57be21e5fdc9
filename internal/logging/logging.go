package logging

import "go.uber.org/zap"

// New builds the process logger. Production gets sampled JSON; everything
// else gets the human console encoder.
func New(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
