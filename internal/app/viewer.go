package app

//go:generate mockgen -source=viewer.go -destination=mocks/mocks.go -package=mocks Viewer

// Viewer displays one image of the current pair. Point edits made in the
// viewer are reported back through Session.OnControlPointsChanged.
type Viewer interface {
	Open(path string) error
	Close() error
}
