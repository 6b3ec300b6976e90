package imagestudio

// Image returns a stored image by id.
func (m *Manager) Image(id string) (GeneratedImage, error) {
	m.mu.RLock()
	artifacts := m.artifacts
	m.mu.RUnlock()

	if artifacts == nil {
		return GeneratedImage{}, ErrStorageNotConfigured
	}
	return artifacts.Get(id)
}

// Session returns the turns recorded for a session, oldest first.
func (m *Manager) Session(sessionID string) ([]SessionTurn, error) {
	m.mu.RLock()
	ledger := m.ledger
	m.mu.RUnlock()

	if ledger == nil {
		return nil, ErrStorageNotConfigured
	}
	return ledger.Turns(sessionID)
}
