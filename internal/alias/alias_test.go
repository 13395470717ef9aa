package alias

import (
	"testing"

	"github.com/apkscope/thriftex/internal/corpus"
	"github.com/apkscope/thriftex/internal/schema"
)

func entry(path, source string) corpus.Entry {
	return corpus.Entry{Path: path, Source: []byte(source)}
}

func TestResolveOwnLiteral(t *testing.T) {
	t.Parallel()
	entries := []corpus.Entry{
		entry("b.java", `public class b {
  public String toString() {
    StringBuilder sb = new StringBuilder("Profile(");
    return sb.toString();
  }
}`),
	}

	table, diags := Resolve(entries)
	if got := table.Resolve("b"); got != "Profile" {
		t.Errorf("Resolve(b) = %q, want Profile", got)
	}
	if len(diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
}

func TestResolveReturnLiteral(t *testing.T) {
	t.Parallel()
	entries := []corpus.Entry{
		entry("g.java", `public class g {
  public String toString() {
    return "Contact(" + this.mid + ")";
  }
}`),
	}

	table, _ := Resolve(entries)
	if got := table.Resolve("g"); got != "Contact" {
		t.Errorf("Resolve(g) = %q, want Contact", got)
	}
}

func TestResolveArgsWrapper(t *testing.T) {
	t.Parallel()
	entries := []corpus.Entry{
		entry("q.java", `public class q {
  public String toString() {
    return "get_contacts_args(" + this.request + ")";
  }
}`),
	}

	table, _ := Resolve(entries)
	if got := table.Resolve("q"); got != "GetContactsRequest" {
		t.Errorf("Resolve(q) = %q, want GetContactsRequest", got)
	}
}

func TestResolveResultWrapperNamesSuccessType(t *testing.T) {
	t.Parallel()
	entries := []corpus.Entry{
		entry("h.java", `public class h {
  public static int IGNORED;
  public b success;
  public i e;
  public String toString() {
    StringBuilder sb = new StringBuilder("getProfile_result(");
    return sb.toString();
  }
}`),
	}

	table, _ := Resolve(entries)
	// The alias lands on the success slot's type, not the wrapper itself.
	if got := table.Resolve("b"); got != "GetProfileResponse" {
		t.Errorf("Resolve(b) = %q, want GetProfileResponse", got)
	}
	a, ok := table.Lookup("b")
	if !ok || a.Source != schema.SourceCallSite {
		t.Errorf("Lookup(b) = %+v, want call-site source", a)
	}
}

func TestResultWrapperSkipsStaticConstants(t *testing.T) {
	t.Parallel()
	// A static final constant declared before the success slot must not be
	// mistaken for it, whatever mix of modifiers it carries.
	entries := []corpus.Entry{
		entry("h.java", `public class h {
  public static final q DEFAULT;
  public b success;
  public String toString() {
    StringBuilder sb = new StringBuilder("getProfile_result(");
    return sb.toString();
  }
}`),
	}

	table, _ := Resolve(entries)
	if got := table.Resolve("b"); got != "GetProfileResponse" {
		t.Errorf("Resolve(b) = %q, want GetProfileResponse", got)
	}
	if _, ok := table.Lookup("q"); ok {
		t.Error("static constant type must not receive the response alias")
	}
}

func TestOwnLiteralBeatsCallSite(t *testing.T) {
	t.Parallel()
	entries := []corpus.Entry{
		entry("b.java", `public class b {
  public String toString() {
    StringBuilder sb = new StringBuilder("Profile(");
    return sb.toString();
  }
}`),
		entry("h.java", `public class h {
  public b success;
  public String toString() {
    StringBuilder sb = new StringBuilder("getProfile_result(");
    return sb.toString();
  }
}`),
	}

	table, diags := Resolve(entries)
	if got := table.Resolve("b"); got != "Profile" {
		t.Errorf("Resolve(b) = %q, want own literal to win", got)
	}
	if len(diags) != 1 || diags[0].Kind != schema.AmbiguousAlias || diags[0].Entity != "b" {
		t.Errorf("diags = %v, want one AmbiguousAlias for b", diags)
	}
}

func TestShortestCandidateWinsTies(t *testing.T) {
	t.Parallel()
	entries := []corpus.Entry{
		entry("c.java", `public class c {
  public String toString() {
    StringBuilder sb = new StringBuilder("ContactList(");
    sb.append(new StringBuilder("Contact("));
    return sb.toString();
  }
}`),
	}

	table, diags := Resolve(entries)
	if got := table.Resolve("c"); got != "Contact" {
		t.Errorf("Resolve(c) = %q, want shortest candidate", got)
	}
	if len(diags) != 1 {
		t.Errorf("diags = %v, want one AmbiguousAlias", diags)
	}
}

func TestUnresolvedMarking(t *testing.T) {
	t.Parallel()
	entries := []corpus.Entry{
		entry("zz.java", `public class zz {
  public int value;
}`),
	}

	table, _ := Resolve(entries)
	if got := table.Resolve("zz"); got != "zz" {
		t.Errorf("Resolve(zz) = %q, want pass-through", got)
	}
	if !table.IsUnresolved("zz") {
		t.Error("zz should be marked unresolved")
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	t.Parallel()
	entries := []corpus.Entry{
		entry("b.java", `public class b {
  public String toString() {
    StringBuilder sb = new StringBuilder("Profile(");
    return sb.toString();
  }
}`),
		entry("h.java", `public class h {
  public b success;
  public String toString() {
    StringBuilder sb = new StringBuilder("getProfile_result(");
    return sb.toString();
  }
}`),
	}

	t1, d1 := Resolve(entries)
	t2, d2 := Resolve(entries)
	if t1.Resolve("b") != t2.Resolve("b") {
		t.Error("tie-break winner changed between runs")
	}
	if len(d1) != len(d2) {
		t.Errorf("diagnostic counts differ: %d vs %d", len(d1), len(d2))
	}
}

func TestCamelCase(t *testing.T) {
	t.Parallel()
	cases := []struct{ in, want string }{
		{"get_user_info", "GetUserInfo"},
		{"getUserInfo", "GetUserInfo"},
		{"fetch", "Fetch"},
		{"__x", "X"},
	}
	for _, c := range cases {
		if got := CamelCase(c.in); got != c.want {
			t.Errorf("CamelCase(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
