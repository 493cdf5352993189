package ntpclient

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/thrasher-corp/gctwithdraw/log"
)

const (
	ntpEpochOffset = 2208988800
	defaultTimeout = 5 * time.Second
)

// ErrClockDrift is returned when the local clock is outside of the allowed
// difference from NTP time
var ErrClockDrift = errors.New("local clock out of sync")

type ntpPacket struct {
	Settings       uint8  // leap yr indicator, ver number, and mode
	Stratum        uint8  // stratum of local clock
	Poll           int8   // poll exponent
	Precision      int8   // precision exponent
	RootDelay      uint32 // root delay
	RootDispersion uint32 // root dispersion
	ReferenceID    uint32 // reference id
	RefTimeSec     uint32 // reference timestamp sec
	RefTimeFrac    uint32 // reference timestamp fractional
	OrigTimeSec    uint32 // origin time secs
	OrigTimeFrac   uint32 // origin time fractional
	RxTimeSec      uint32 // receive time secs
	RxTimeFrac     uint32 // receive time frac
	TxTimeSec      uint32 // transmit time secs
	TxTimeFrac     uint32 // transmit time frac
}

// NTPClient queries each pool in order and returns the first server time
// received. If no server can be reached the local time in UTC is returned.
func NTPClient(pool []string) time.Time {
	for i := range pool {
		t, err := query(pool[i], defaultTimeout)
		if err != nil {
			log.Warnf(log.TimeMgr, "Unable to query NTP server %v, attempting next: %v", pool[i], err)
			continue
		}
		return t
	}
	log.Warnln(log.TimeMgr, "No valid NTP servers found, using current system time")
	return time.Now().UTC()
}

// CheckDrift returns the difference between ntpTime and localTime, wrapping
// ErrClockDrift when it exceeds allowed or falls below -allowedNegative
func CheckDrift(ntpTime, localTime time.Time, allowed, allowedNegative time.Duration) (time.Duration, error) {
	diff := ntpTime.Sub(localTime)
	if diff > allowed || diff < -allowedNegative {
		return diff, fmt.Errorf("%w: difference %v, allowed +%v / -%v", ErrClockDrift, diff, allowed, allowedNegative)
	}
	return diff, nil
}

func query(server string, timeout time.Duration) (time.Time, error) {
	con, err := net.DialTimeout("udp", server, timeout)
	if err != nil {
		return time.Time{}, err
	}
	defer func() {
		if closeErr := con.Close(); closeErr != nil {
			log.Errorln(log.TimeMgr, closeErr)
		}
	}()

	if err = con.SetDeadline(time.Now().Add(timeout)); err != nil {
		return time.Time{}, err
	}
	if err = binary.Write(con, binary.BigEndian, &ntpPacket{Settings: 0x1B}); err != nil {
		return time.Time{}, err
	}
	rsp := &ntpPacket{}
	if err = binary.Read(con, binary.BigEndian, rsp); err != nil {
		return time.Time{}, err
	}

	secs := int64(rsp.TxTimeSec) - ntpEpochOffset
	nanos := (int64(rsp.TxTimeFrac) * 1e9) >> 32
	return time.Unix(secs, nanos).UTC(), nil
}
