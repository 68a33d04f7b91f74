package tempomap

import (
	"fmt"
	"io"

	"github.com/gruntwork-io/go-commons/errors"
)

// Dump writes one line per section in timeline order, for debugging.
func (tm *TempoMap) Dump(w io.Writer) error {
	tm.lock.RLock()
	defer tm.lock.RUnlock()

	if _, err := fmt.Fprintf(w, "tempo map @ %d Hz, %d sections\n", tm.frameRate, len(tm.metrics.order)); err != nil {
		return errors.WithStackTrace(err)
	}
	for _, id := range tm.metrics.order {
		if _, err := fmt.Fprintf(w, "  #%d %v\n", id, tm.metrics.arena[id]); err != nil {
			return errors.WithStackTrace(err)
		}
	}
	return nil
}
