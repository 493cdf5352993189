package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRandomSalt(t *testing.T) {
	t.Parallel()

	_, err := GetRandomSalt(nil, -1)
	assert.ErrorIs(t, err, errSaltTooSmall)

	salt, err := GetRandomSalt(nil, 10)
	require.NoError(t, err, "GetRandomSalt must not error")
	assert.Len(t, salt, 10)

	prefix := []byte("RAWR")
	salt, err = GetRandomSalt(prefix, 12)
	require.NoError(t, err, "GetRandomSalt must not error")
	assert.Len(t, salt, 16)
	assert.Equal(t, prefix, salt[:4])
	assert.Equal(t, []byte("RAWR"), prefix, "prefix must not be modified")
}

func TestSignHex(t *testing.T) {
	t.Parallel()
	// Binance's documented signing example
	query := "symbol=LTCBTC&side=BUY&type=LIMIT&timeInForce=GTC&quantity=1&price=0.1&recvWindow=5000&timestamp=1499827319559"
	secret := "NhqPtmdSJYdKjVHjA7PZj4Mge3R5YNiP1e3UZjInClVN65XAbvqqM6A7H5fATj0j"
	assert.Equal(t,
		"c8db56825ae71d6d79447849e617115f4a920fa2acdcab2b053c4b2838bd6b71",
		SignHex(query, secret))
}

func TestSignBase64(t *testing.T) {
	t.Parallel()
	assert.Equal(t,
		"NkQGDCCeUBaOCINv+JERyuA7h84LqprFtxyWT6hpPmY=",
		SignBase64("Hello,World", "1234"))
}
