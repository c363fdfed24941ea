package interfaces

import "product-filter/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger pushes pipeline results to external listeners.
// -----------------------------------------------------------------------------

type IDataExchanger interface {

	// Broadcast queues an event for every subscriber of its category.
	Broadcast(event *models.MPipelineEvent)

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}
