package pagination

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		name      string
		in        Params
		wantPage  int
		wantLimit int
	}{
		{name: "zero value", in: Params{}, wantPage: 1, wantLimit: DefaultLimit},
		{name: "negative page", in: Params{Page: -3, Limit: 10}, wantPage: 1, wantLimit: 10},
		{name: "limit capped", in: Params{Page: 2, Limit: 5000}, wantPage: 2, wantLimit: MaxLimit},
		{name: "passthrough", in: Params{Page: 4, Limit: 50}, wantPage: 4, wantLimit: 50},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.in.Normalize()
			if got.Page != tc.wantPage || got.Limit != tc.wantLimit {
				t.Fatalf("got %+v", got)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	if got := (Params{Page: 1, Limit: 25}).Offset(); got != 0 {
		t.Fatalf("page 1 offset = %d", got)
	}
	if got := (Params{Page: 3, Limit: 20}).Offset(); got != 40 {
		t.Fatalf("page 3 offset = %d", got)
	}
}
