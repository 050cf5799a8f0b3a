//go:build !((darwin && !ios) || linux)

package segment

func newSysVManager(options) (Manager, error) {
	return nil, ErrBackendUnsupported
}
