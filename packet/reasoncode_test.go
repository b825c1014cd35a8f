package packet

import "testing"

func TestReasonCodeSuccess(t *testing.T) {
	cases := []struct {
		rc   ReasonCode
		want bool
	}{
		{Success, true},
		{GrantedQoS2, true},
		{NoMatchingSubscribers, true},
		{UnspecifiedError, false},
		{PacketIdentifierNotFound, false},
		{WildcardSubscriptionsNotSupported, false},
	}
	for _, c := range cases {
		if got := c.rc.Success(); got != c.want {
			t.Errorf("%s.Success() = %v, want %v", c.rc.Reason, got, c.want)
		}
	}
}

func TestLookupReasonCode(t *testing.T) {
	rc, ok := lookupReasonCode(0x87)
	if !ok || rc != NotAuthorized {
		t.Fatalf("lookupReasonCode(0x87) = %+v, %v; want NotAuthorized, true", rc, ok)
	}
	_, ok = lookupReasonCode(0xFE)
	if ok {
		t.Fatal("lookupReasonCode(0xFE) = true, want false for an unassigned code")
	}
}
