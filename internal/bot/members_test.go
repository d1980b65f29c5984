package bot

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/PatrickWalther/wordle-timer-go/internal/puzzle"
)

type fakeMemberAPI struct {
	members []*discordgo.Member
	err     error
}

func (f *fakeMemberAPI) GuildMember(_, userID string, _ ...discordgo.RequestOption) (*discordgo.Member, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, m := range f.members {
		if m.User.ID == userID {
			return m, nil
		}
	}
	return nil, &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}
}

func (f *fakeMemberAPI) GuildMembersSearch(_, query string, limit int, _ ...discordgo.RequestOption) ([]*discordgo.Member, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*discordgo.Member
	for _, m := range f.members {
		if strings.HasPrefix(strings.ToLower(m.DisplayName()), strings.ToLower(query)) ||
			strings.HasPrefix(strings.ToLower(m.User.Username), strings.ToLower(query)) {
			out = append(out, m)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func testMembers() *fakeMemberAPI {
	return &fakeMemberAPI{members: []*discordgo.Member{
		{User: &discordgo.User{ID: "1", Username: "alice_w", GlobalName: "Alice", Avatar: "abc"}},
		{User: &discordgo.User{ID: "2", Username: "alice"}, Nick: "Alicia"},
		{User: &discordgo.User{ID: "3", Username: "bob"}, Nick: "Bobby"},
	}}
}

func TestMemberByID(t *testing.T) {
	r := &memberResolver{api: testMembers()}

	m, err := r.MemberByID(context.Background(), "g", "1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if m.ID != "1" || m.Name != "Alice" {
		t.Errorf("member = %+v", m)
	}
	if !strings.Contains(m.AvatarURL, "/avatars/1/abc") {
		t.Errorf("avatar = %q", m.AvatarURL)
	}

	if _, err := r.MemberByID(context.Background(), "g", "404"); !errors.Is(err, puzzle.ErrMemberNotFound) {
		t.Fatalf("err = %v, want ErrMemberNotFound", err)
	}
}

func TestMemberByNamePrefersDisplayName(t *testing.T) {
	r := &memberResolver{api: testMembers()}

	m, err := r.MemberByName(context.Background(), "g", "alice")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if m.ID != "1" {
		t.Fatalf("matched %+v, want display name Alice", m)
	}

	m, err = r.MemberByName(context.Background(), "g", "bobby")
	if err != nil || m.ID != "3" {
		t.Fatalf("nick lookup = %+v, %v", m, err)
	}

	if _, err := r.MemberByName(context.Background(), "g", "carol"); !errors.Is(err, puzzle.ErrMemberNotFound) {
		t.Fatalf("err = %v, want ErrMemberNotFound", err)
	}
}

func TestMemberLookupErrors(t *testing.T) {
	r := &memberResolver{api: &fakeMemberAPI{err: errors.New("gateway down")}}
	if _, err := r.MemberByID(context.Background(), "g", "1"); err == nil || errors.Is(err, puzzle.ErrMemberNotFound) {
		t.Fatalf("err = %v, want transport error", err)
	}
	if _, err := r.MemberByName(context.Background(), "g", "alice"); err == nil {
		t.Fatal("expected search error")
	}
}

type fakeChannelAPI struct {
	names map[string]string
	calls int
}

func (f *fakeChannelAPI) Channel(channelID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.calls++
	name, ok := f.names[channelID]
	if !ok {
		return nil, errors.New("unknown channel")
	}
	return &discordgo.Channel{ID: channelID, Name: name}, nil
}

func TestChannelNamesCache(t *testing.T) {
	api := &fakeChannelAPI{names: map[string]string{"c1": "daily-puzzles"}}
	c := newChannelNames(api, time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		name, err := c.Name("c1")
		if err != nil || name != "daily-puzzles" {
			t.Fatalf("name = %q, %v", name, err)
		}
	}
	if api.calls != 1 {
		t.Fatalf("api called %d times, want 1", api.calls)
	}

	now = now.Add(2 * time.Minute)
	api.names["c1"] = "renamed"
	if name, _ := c.Name("c1"); name != "renamed" {
		t.Fatalf("expired entry not refreshed: %q", name)
	}

	api.names["c1"] = "again"
	c.Forget("c1")
	if name, _ := c.Name("c1"); name != "again" {
		t.Fatalf("forgotten entry not refreshed: %q", name)
	}

	if _, err := c.Name("nope"); err == nil {
		t.Fatal("expected error for unknown channel")
	}
}
