package station

import (
	"github.com/chaseleif/starswitch/internal/netio"
	"github.com/chaseleif/starswitch/internal/wire"
)

// finish sends the quit-ready notice and blocks on recv_all, once
// FINISHED there is nothing left for this station to do but wait for
// the switch's quit confirmation.
func (st *Station) finish() error {
	h := wire.NewTotalHeader(uint32(st.id), uint32(st.id), 0)
	if err := netio.SendAll(st.conn, wire.Marshal(h)); err != nil {
		return err
	}
	st.state |= StateFinished
	st.logger.Infof("sp %d sent quit-ready, awaiting confirmation", st.id)

	for !st.quitConfirmed {
		if err := st.blockingReceiveOnce(); err != nil {
			return err
		}
	}
	return nil
}
