package resolve

import (
	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
)

// versionQueue yields id's candidate versions highest-first, recording
// failures as the solver backtracks through them. Grounded on the
// teacher's versionQueue (version_queue.go): an installed/preferred version
// goes first when present, then the full version list, consumed via
// advance() rather than re-sorted each time.
type versionQueue struct {
	id    uuid.UUID
	queue []*semver.Version
	fails []failedVersion
}

type failedVersion struct {
	v   *semver.Version
	err error
}

func newVersionQueue(id uuid.UUID, all []*semver.Version, preferred *semver.Version) *versionQueue {
	vq := &versionQueue{id: id}
	for _, v := range all {
		if preferred != nil && v.Equal(preferred) {
			vq.queue = append([]*semver.Version{v}, vq.queue...)
		} else {
			vq.queue = append(vq.queue, v)
		}
	}
	return vq
}

func (vq *versionQueue) current() *semver.Version {
	if len(vq.queue) == 0 {
		return nil
	}
	return vq.queue[0]
}

// advance records why the current head failed and pops it.
func (vq *versionQueue) advance(fail error) {
	if len(vq.queue) == 0 {
		return
	}
	vq.fails = append(vq.fails, failedVersion{v: vq.queue[0], err: fail})
	vq.queue = vq.queue[1:]
}

func (vq *versionQueue) isExhausted() bool {
	return len(vq.queue) == 0
}
