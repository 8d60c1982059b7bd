package netmgmt

import "testing"

func FuzzDecodeBeaconPayload(f *testing.F) {
	f.Add([]byte{0x03, 1, 2, 3, 4, 5, 6, 7, 8, 0, 0, 0, 0x2A})
	f.Add([]byte{})
	f.Add(make([]byte, 12))
	f.Add(make([]byte, 14))

	f.Fuzz(func(t *testing.T, payload []byte) {
		decoded, err := DecodeBeaconPayload(payload)
		if err != nil {
			return
		}
		if len(payload) != 13 {
			t.Fatalf("accepted payload of length %d", len(payload))
		}
		again, err2 := DecodeBeaconPayload(payload)
		if err2 != nil {
			t.Fatal("second decode failed but first succeeded")
		}
		if decoded != again {
			t.Errorf("not deterministic: %+v != %+v", decoded, again)
		}
	})
}
