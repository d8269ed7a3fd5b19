package tenant

import (
	"context"
	"reflect"
	"testing"
)

type staticConfig map[string]string

func (c staticConfig) Get(_ context.Context, tenantID, key, def string) string {
	if v, ok := c[tenantID+"/"+key]; ok {
		return v
	}
	return def
}

func TestParseAdminList(t *testing.T) {
	cases := []struct {
		in   string
		want []int64
	}{
		{"", nil},
		{"   ", nil},
		{"100", []int64{100}},
		{"100,200,300", []int64{100, 200, 300}},
		{" 100 , 200 ", []int64{100, 200}},
		{"100,,200", []int64{100, 200}},
		{"100,abc,200", []int64{100, 200}},
		{"0,100", []int64{100}},
	}
	for _, tc := range cases {
		if got := ParseAdminList(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("ParseAdminList(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestJoinAdminListRoundTrip(t *testing.T) {
	ids := []int64{100, 200, 300}
	if got := ParseAdminList(JoinAdminList(ids)); !reflect.DeepEqual(got, ids) {
		t.Fatalf("round trip = %v", got)
	}
	if got := JoinAdminList(nil); got != "" {
		t.Fatalf("JoinAdminList(nil) = %q", got)
	}
}

func TestAdminSetMergesAndDedupes(t *testing.T) {
	tn := Tenant{ID: "bot1", AdminID: 100}
	cfg := staticConfig{"bot1/" + KeyExtraAdmins: "300,100,200"}

	got := tn.AdminSet(context.Background(), cfg)
	want := []int64{100, 200, 300}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("AdminSet = %v, want %v", got, want)
	}
}

func TestIsAdmin(t *testing.T) {
	tn := Tenant{ID: "bot1", AdminID: 100}
	cfg := staticConfig{"bot1/" + KeyExtraAdmins: "200"}
	ctx := context.Background()

	if !tn.IsAdmin(ctx, cfg, 100) {
		t.Fatal("primary admin must pass")
	}
	if !tn.IsAdmin(ctx, cfg, 200) {
		t.Fatal("extra admin must pass")
	}
	if tn.IsAdmin(ctx, cfg, 300) {
		t.Fatal("stranger must not pass")
	}
	if tn.IsAdmin(ctx, cfg, 0) {
		t.Fatal("zero user id must not pass")
	}
}

func TestExtraAdminsExcludesPrimary(t *testing.T) {
	tn := Tenant{ID: "bot1", AdminID: 100}
	cfg := staticConfig{"bot1/" + KeyExtraAdmins: "200,300"}

	got := tn.ExtraAdmins(context.Background(), cfg)
	if !reflect.DeepEqual(got, []int64{200, 300}) {
		t.Fatalf("ExtraAdmins = %v", got)
	}
}
