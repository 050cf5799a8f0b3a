//go:build !unix

package segment

func newFileManager(options) (Manager, error) {
	return nil, ErrBackendUnsupported
}
