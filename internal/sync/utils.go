package sync

// IsManualRun checks if the run reason indicates a manual run
func IsManualRun(reason string) bool {
	return reason == ReasonManualRequested
}
