package pages

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/johnrirwin/journalfeed/internal/aggregator"
	"github.com/johnrirwin/journalfeed/internal/cache"
	"github.com/johnrirwin/journalfeed/internal/fetch"
	"github.com/johnrirwin/journalfeed/internal/journal"
	"github.com/johnrirwin/journalfeed/internal/models"
	"github.com/johnrirwin/journalfeed/internal/testutil"
)

// upstream is a fake recommendations API. Routes answer with a fixed body
// unless a status is forced for the path.
type upstream struct {
	mu     sync.Mutex
	calls  []string
	bodies map[string]string
	status map[string]int
}

func newUpstream() *upstream {
	return &upstream{
		bodies: map[string]string{
			"/volumes": `{"volumes":[
				{"issue_id":101,"volume":"1","number":"1"},
				{"issue_id":102,"volume":"1","number":"2"},
				{"issue_id":103,"volume":"1","number":"3"}
			]}`,
			"/volumes-no-filter/101":     `{"issue":{"issue_id":101,"volume":"1","number":"1"},"articles":[{"submission_id":11,"publication_id":21,"title":"First","authors":"Ada Lovelace"}]}`,
			"/volumes-no-filter/102":     `{"issue":{"issue_id":102,"volume":"1","number":"2"},"articles":[{"submission_id":12,"publication_id":22,"title":"Second","authors":"Alan Turing"}]}`,
			"/volumes-no-filter/103":     `{"issue":{"issue_id":103,"volume":"1","number":"3"},"articles":[{"submission_id":555,"publication_id":777,"title":"Found","authors":"Grace Hopper"}]}`,
			"/admin/recommendations/21":  `{"recommendations":[{"target_publication_id":31,"title":"Similar to first","rank":1}]}`,
			"/admin/recommendations/777": `{"recommendations":[{"target_publication_id":32,"title":"Similar to found","rank":1}]}`,
			"/admin/homepage/recent":     `{"articles":[{"publication_id":41,"title":"Recent"}]}`,
			"/admin/homepage/featured":   `{"articles":[{"publication_id":777,"submission_id":555,"title":"Found"},{"publication_id":42,"title":"Featured"}]}`,
			"/admin/homepage/popular":    `{"articles":[{"publication_id":43,"title":"Popular"}]}`,
			"/admin/homepage/trending":   `{"articles":[{"publication_id":44,"title":"Trending"}]}`,
			"/status":                    `{"system_status":"operational","scheduler_running":true,"today_statistics":{"articles_with_recommendations":0,"total_recommendations":48}}`,
			"/admin/cache-status":        `{"cache_statistics":{"total_records":120,"unique_target_articles":30,"similarity_range":{"average":0.5}}}`,
			"/health":                    `{"status":"healthy","database":"connected"}`,
		},
		status: map[string]int{},
	}
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	u.calls = append(u.calls, r.URL.Path)
	status, forced := u.status[r.URL.Path]
	body, ok := u.bodies[r.URL.Path]
	u.mu.Unlock()

	if forced {
		w.WriteHeader(status)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Write([]byte(body))
}

func (u *upstream) fail(path string, status int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status[path] = status
}

func (u *upstream) serve(path, body string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.bodies[path] = body
}

func (u *upstream) restore(path string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.status, path)
}

func (u *upstream) callsWithPrefix(prefix string) []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := []string{}
	for _, c := range u.calls {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

func testSettings() Settings {
	return Settings{
		ArticlesPerSection: 4,
		SimilarLimit:       4,
		HybridLimit:        4,
		VolumesTTL:         time.Minute,
		FeedTTL:            time.Minute,
		DetailTTL:          time.Minute,
	}
}

func newTestDeps(t *testing.T, handler http.Handler, settings Settings) Deps {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := testutil.NullLogger()
	client := fetch.New(fetch.Config{BaseURL: server.URL}, logger)
	policy := fetch.Policy{Timeout: 2 * time.Second, MaxRetries: 1, RetryDelay: time.Millisecond}

	memory := cache.NewMemory(time.Hour)
	t.Cleanup(memory.Stop)

	return Deps{
		API:          journal.NewAPI(client, journal.DefaultEndpoints(), policy),
		Orchestrator: aggregator.New(client, logger, 0),
		Cache:        cache.New(memory, logger),
		Logger:       logger,
		Settings:     settings,
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  *fetch.Error
		want Category
	}{
		{"not found kind", fetch.NewError(fetch.KindNotFound, "gone", nil), CategoryNotFound},
		{"empty", fetch.NewError(fetch.KindEmpty, "nothing", nil), CategoryNotFound},
		{"http 404", &fetch.Error{Kind: fetch.KindHTTP, Status: 404, Message: "Not Found"}, CategoryNotFound},
		{"http 500", &fetch.Error{Kind: fetch.KindHTTP, Status: 500, Message: "Internal Server Error"}, CategoryServerError},
		{"timeout", fetch.NewError(fetch.KindTimeout, "timed out", nil), CategoryConnectivity},
		{"network", fetch.NewError(fetch.KindNetwork, "refused", nil), CategoryConnectivity},
		{"invalid payload", fetch.NewError(fetch.KindInvalidPayload, "bad json", nil), CategoryMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got.Category != tt.want {
				t.Errorf("Classify() category = %q, want %q", got.Category, tt.want)
			}
			if got.Kind != tt.err.Kind || got.Err != tt.err {
				t.Errorf("Classify() did not keep the source error: %+v", got)
			}
		})
	}

	if Classify(nil) != nil {
		t.Error("Classify(nil) should be nil")
	}
}

func TestHomepage_AllFeedsLoad(t *testing.T) {
	up := newUpstream()
	page := NewHomepage(newTestDeps(t, up, testSettings()))

	if page.State().Status != StatusIdle {
		t.Fatalf("initial status = %q, want idle", page.State().Status)
	}

	res := page.LoadAggregatedFeeds(context.Background(), nil)
	if res.Status != StatusSuccess {
		t.Fatalf("Status = %q, want success (err %v)", res.Status, res.Err)
	}
	if len(res.Value) != 4 {
		t.Fatalf("got %d feeds, want 4", len(res.Value))
	}
	for _, feed := range journal.HomepageFeeds() {
		r := res.Value[feed]
		if len(r.Articles) != 1 && feed != journal.FeedFeatured {
			t.Errorf("feed %s has %d articles", feed, len(r.Articles))
		}
		if r.Cached {
			t.Errorf("feed %s should not come from cache on first load", feed)
		}
	}
	if got := up.callsWithPrefix("/admin/homepage/"); len(got) != 4 {
		t.Errorf("homepage calls = %v, want 4", got)
	}
	if page.State().Status != StatusSuccess || page.State().Generation != 1 {
		t.Errorf("State() = %+v", page.State())
	}

	again := page.LoadAggregatedFeeds(context.Background(), nil)
	if again.Status != StatusSuccess {
		t.Fatalf("second load status = %q", again.Status)
	}
	if got := up.callsWithPrefix("/admin/homepage/"); len(got) != 4 {
		t.Errorf("second load hit the API: %v", got)
	}
	if !again.Value[journal.FeedRecent].Cached {
		t.Error("second load should be served from cache")
	}
	if again.Generation != 2 {
		t.Errorf("Generation = %d, want 2", again.Generation)
	}
}

func TestHomepage_OneFeedFailingIsPartialSuccess(t *testing.T) {
	up := newUpstream()
	up.fail("/admin/homepage/popular", http.StatusInternalServerError)
	page := NewHomepage(newTestDeps(t, up, testSettings()))

	res := page.LoadAggregatedFeeds(context.Background(), nil)
	if res.Status != StatusPartialSuccess {
		t.Fatalf("Status = %q, want partial-success", res.Status)
	}
	if len(res.Failures) != 1 {
		t.Fatalf("Failures = %v, want only popular", res.Failures)
	}
	le := res.Failures[string(journal.FeedPopular)]
	if le == nil || le.Category != CategoryServerError || le.Status != http.StatusInternalServerError {
		t.Errorf("popular failure = %+v", le)
	}

	popular := res.Value[journal.FeedPopular]
	if !popular.Failed() || len(popular.Articles) != 0 {
		t.Errorf("popular = %+v, want failed with no articles", popular)
	}
	for _, feed := range []journal.Feed{journal.FeedRecent, journal.FeedFeatured, journal.FeedTrending} {
		if r := res.Value[feed]; r.Failed() || len(r.Articles) == 0 {
			t.Errorf("feed %s = %+v, want articles", feed, r)
		}
	}
	if page.State().Status != StatusPartialSuccess {
		t.Errorf("State().Status = %q", page.State().Status)
	}
}

func TestHomepage_AllFeedsFailing(t *testing.T) {
	up := newUpstream()
	for _, feed := range journal.HomepageFeeds() {
		up.fail("/admin/homepage/"+string(feed), http.StatusBadGateway)
	}
	page := NewHomepage(newTestDeps(t, up, testSettings()))

	res := page.LoadAggregatedFeeds(context.Background(), nil)
	if res.Status != StatusFailed {
		t.Fatalf("Status = %q, want failed", res.Status)
	}
	if res.Err == nil || res.Err.Category != CategoryServerError {
		t.Errorf("Err = %+v", res.Err)
	}
	if len(res.Failures) != 4 {
		t.Errorf("Failures = %v", res.Failures)
	}
}

func TestHomepage_SelectedFeedsAndDuplicates(t *testing.T) {
	up := newUpstream()
	page := NewHomepage(newTestDeps(t, up, testSettings()))

	res := page.LoadAggregatedFeeds(context.Background(), []journal.Feed{journal.FeedTrending, journal.FeedTrending, journal.FeedRecent})
	if res.Status != StatusSuccess {
		t.Fatalf("Status = %q", res.Status)
	}
	if len(res.Value) != 2 {
		t.Errorf("got %d feeds, want 2", len(res.Value))
	}
	if got := up.callsWithPrefix("/admin/homepage/"); len(got) != 2 {
		t.Errorf("homepage calls = %v", got)
	}
}

func TestHomepage_StaleFeedServedAfterFailure(t *testing.T) {
	up := newUpstream()
	settings := testSettings()
	settings.FeedTTL = 5 * time.Millisecond
	page := NewHomepage(newTestDeps(t, up, settings))

	if res := page.LoadAggregatedFeeds(context.Background(), nil); res.Status != StatusSuccess {
		t.Fatalf("warm-up status = %q", res.Status)
	}

	time.Sleep(20 * time.Millisecond)
	up.fail("/admin/homepage/recent", http.StatusServiceUnavailable)

	res := page.LoadAggregatedFeeds(context.Background(), nil)
	if res.Status != StatusSuccess {
		t.Fatalf("Status = %q, want success from stale copy", res.Status)
	}
	recent := res.Value[journal.FeedRecent]
	if !recent.Stale || len(recent.Articles) != 1 || recent.Err == nil {
		t.Errorf("recent = %+v, want stale articles with the error kept", recent)
	}
	if !res.Stale {
		t.Error("Result.Stale should be set")
	}

	page.Invalidate(context.Background())
	res = page.LoadAggregatedFeeds(context.Background(), nil)
	if res.Status != StatusPartialSuccess {
		t.Errorf("after invalidate status = %q, want partial-success", res.Status)
	}
}

func TestVolumesList_Load(t *testing.T) {
	up := newUpstream()
	page := NewVolumesList(newTestDeps(t, up, testSettings()))

	res := page.Load(context.Background(), false)
	if res.Status != StatusSuccess || len(res.Value) != 3 {
		t.Fatalf("Load() = %q with %d volumes", res.Status, len(res.Value))
	}
	if res.Value[0].IssueID != 101 || res.Value[2].DisplayName != "Vol. 1, No. 3" {
		t.Errorf("volumes = %+v", res.Value)
	}

	page.Load(context.Background(), false)
	if got := up.callsWithPrefix("/volumes"); len(got) != 1 {
		t.Errorf("cached load hit the API: %v", got)
	}

	page.ForceReload(context.Background())
	if got := up.callsWithPrefix("/volumes"); len(got) != 2 {
		t.Errorf("forced load did not hit the API: %v", got)
	}
}

func TestVolumesList_EmptyList(t *testing.T) {
	up := newUpstream()
	up.bodies["/volumes"] = `{"volumes":[]}`
	page := NewVolumesList(newTestDeps(t, up, testSettings()))

	res := page.Load(context.Background(), false)
	if res.Status != StatusSuccess || !res.Empty {
		t.Errorf("Load() = %+v, want empty success", res)
	}
}

func TestVolumesList_MissingVolumesField(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"wrong field", `{"items":[{"issue_id":1}]}`},
		{"null list", `{"volumes":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newUpstream()
			up.bodies["/volumes"] = tt.body
			page := NewVolumesList(newTestDeps(t, up, testSettings()))

			res := page.Load(context.Background(), false)
			if res.Status != StatusFailed || res.Err.Category != CategoryMalformedResponse {
				t.Errorf("Load() = %q %+v, want malformed-response failure", res.Status, res.Err)
			}
		})
	}
}

func TestVolumesList_MissingFieldKeepsStaleCopy(t *testing.T) {
	up := newUpstream()
	settings := testSettings()
	settings.VolumesTTL = 5 * time.Millisecond
	page := NewVolumesList(newTestDeps(t, up, settings))

	if res := page.Load(context.Background(), false); res.Status != StatusSuccess {
		t.Fatalf("warm-up status = %q", res.Status)
	}
	time.Sleep(20 * time.Millisecond)
	up.serve("/volumes", `{"status":"ok"}`)

	res := page.Load(context.Background(), false)
	if res.Status != StatusSuccess || !res.Stale || len(res.Value) != 3 {
		t.Errorf("Load() = %q stale=%v with %d volumes, want stale copy of 3", res.Status, res.Stale, len(res.Value))
	}
}

func TestVolumesList_StaleFallbackAndForce(t *testing.T) {
	up := newUpstream()
	settings := testSettings()
	settings.VolumesTTL = 5 * time.Millisecond
	page := NewVolumesList(newTestDeps(t, up, settings))

	if res := page.Load(context.Background(), false); res.Status != StatusSuccess {
		t.Fatalf("warm-up status = %q", res.Status)
	}

	time.Sleep(20 * time.Millisecond)
	up.fail("/volumes", http.StatusInternalServerError)

	res := page.Load(context.Background(), false)
	if res.Status != StatusSuccess || !res.Stale {
		t.Fatalf("Load() = %q stale=%v, want stale success", res.Status, res.Stale)
	}
	if len(res.Value) != 3 {
		t.Errorf("stale volumes = %d, want 3", len(res.Value))
	}
	if res.Err == nil || res.Err.Category != CategoryServerError {
		t.Errorf("stale result should keep the error, got %+v", res.Err)
	}

	res = page.Load(context.Background(), true)
	if res.Status != StatusFailed {
		t.Fatalf("forced Load() status = %q, want failed", res.Status)
	}
	if res.Err.Category != CategoryServerError {
		t.Errorf("Err = %+v", res.Err)
	}
	if page.State().Status != StatusFailed {
		t.Errorf("State().Status = %q", page.State().Status)
	}

	up.restore("/volumes")
	if res := page.Load(context.Background(), false); res.Status != StatusSuccess || res.Stale {
		t.Errorf("after recovery = %q stale=%v", res.Status, res.Stale)
	}
}

func TestVolumesList_Connectivity(t *testing.T) {
	up := newUpstream()
	page := NewVolumesList(newTestDeps(t, up, testSettings()))

	conn := page.CheckConnectivity(context.Background())
	if !conn.Online || conn.Status != "healthy" {
		t.Errorf("CheckConnectivity() = %+v", conn)
	}
}

func TestVolumesList_NewerLoadSupersedesOlder(t *testing.T) {
	var calls int32
	entered := make(chan struct{})
	release := make(chan struct{})

	up := newUpstream()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/volumes" && atomic.AddInt32(&calls, 1) == 1 {
			close(entered)
			select {
			case <-r.Context().Done():
			case <-release:
			}
			return
		}
		up.ServeHTTP(w, r)
	})

	settings := testSettings()
	settings.VolumesTTL = 0
	page := NewVolumesList(newTestDeps(t, handler, settings))
	t.Cleanup(func() { close(release) })

	first := make(chan Result[[]models.Volume], 1)
	go func() {
		first <- page.Load(context.Background(), false)
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first load never reached the API")
	}

	second := page.Load(context.Background(), false)
	if second.Status != StatusSuccess || second.Superseded {
		t.Fatalf("second load = %q superseded=%v", second.Status, second.Superseded)
	}
	if second.Generation != 2 {
		t.Errorf("second Generation = %d, want 2", second.Generation)
	}

	select {
	case res := <-first:
		if !res.Superseded {
			t.Error("first load should be marked superseded")
		}
		if res.Generation != 1 {
			t.Errorf("first Generation = %d, want 1", res.Generation)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first load never finished")
	}

	state := page.State()
	if state.Generation != 2 || state.Status != StatusSuccess {
		t.Errorf("State() = %+v, want generation 2 success", state)
	}
}

func TestVolumeDetail_LoadEntity(t *testing.T) {
	up := newUpstream()
	page := NewVolumeDetail(newTestDeps(t, up, testSettings()))

	res := page.LoadEntity(context.Background(), 101)
	if res.Status != StatusSuccess {
		t.Fatalf("Status = %q (err %v)", res.Status, res.Err)
	}
	if res.Value.Detail.Issue.IssueID != 101 || len(res.Value.Detail.Articles) != 1 {
		t.Errorf("Detail = %+v", res.Value.Detail)
	}
	if res.Value.Detail.Issue.ArticlesCount != 1 {
		t.Errorf("ArticlesCount = %d, want 1", res.Value.Detail.Issue.ArticlesCount)
	}
	recs := res.Value.Recommendations
	if len(recs.Articles) != 1 || recs.Articles[0].PublicationID != 31 {
		t.Errorf("Recommendations = %+v", recs)
	}
}

func TestVolumeDetail_RecommendationsFailingIsPartial(t *testing.T) {
	up := newUpstream()
	up.fail("/admin/recommendations/21", http.StatusInternalServerError)
	page := NewVolumeDetail(newTestDeps(t, up, testSettings()))

	res := page.LoadEntity(context.Background(), 101)
	if res.Status != StatusPartialSuccess {
		t.Fatalf("Status = %q, want partial-success", res.Status)
	}
	if len(res.Value.Detail.Articles) != 1 {
		t.Error("volume articles should still be shown")
	}
	if res.Failures[labelRecommendations] == nil {
		t.Errorf("Failures = %v", res.Failures)
	}
}

func TestVolumeDetail_NotFound(t *testing.T) {
	up := newUpstream()
	up.bodies["/volumes-no-filter/999"] = `{"error":"Issue not found"}`
	page := NewVolumeDetail(newTestDeps(t, up, testSettings()))

	res := page.LoadEntity(context.Background(), 999)
	if res.Status != StatusFailed || res.Err.Category != CategoryNotFound {
		t.Errorf("LoadEntity(999) = %q %+v", res.Status, res.Err)
	}

	res = page.LoadEntity(context.Background(), 0)
	if res.Status != StatusFailed || res.Err.Category != CategoryNotFound {
		t.Errorf("LoadEntity(0) = %q %+v", res.Status, res.Err)
	}
	if got := up.callsWithPrefix("/volumes-no-filter/0"); len(got) != 0 {
		t.Errorf("invalid id hit the API: %v", got)
	}
}

func TestVolumeDetail_MalformedResponse(t *testing.T) {
	up := newUpstream()
	up.bodies["/volumes-no-filter/101"] = `{"articles":"nope"}`
	page := NewVolumeDetail(newTestDeps(t, up, testSettings()))

	res := page.LoadEntity(context.Background(), 101)
	if res.Status != StatusFailed || res.Err.Category != CategoryMalformedResponse {
		t.Errorf("LoadEntity() = %q %+v", res.Status, res.Err)
	}
}

func TestArticleDetail_SearchesVolumesInOrder(t *testing.T) {
	up := newUpstream()
	page := NewArticleDetail(newTestDeps(t, up, testSettings()))

	res := page.LoadEntity(context.Background(), 555)
	if res.Status != StatusSuccess {
		t.Fatalf("Status = %q (err %v, failures %v)", res.Status, res.Err, res.Failures)
	}

	want := []string{"/volumes-no-filter/101", "/volumes-no-filter/102", "/volumes-no-filter/103"}
	if got := up.callsWithPrefix("/volumes-no-filter/"); !reflect.DeepEqual(got, want) {
		t.Errorf("volume detail calls = %v, want %v", got, want)
	}

	v := res.Value
	if v.Article.Title != "Found" || v.Volume.IssueID != 103 {
		t.Errorf("found %+v in volume %d", v.Article, v.Volume.IssueID)
	}
	if len(v.Similar.Articles) != 1 || v.Similar.Articles[0].PublicationID != 32 {
		t.Errorf("Similar = %+v", v.Similar)
	}
	for _, a := range v.Hybrid.Articles {
		if a.PublicationID == 777 {
			t.Error("hybrid feed should not repeat the current article")
		}
	}
	if len(v.Hybrid.Articles) != 1 {
		t.Errorf("Hybrid = %+v", v.Hybrid)
	}
}

func TestArticleDetail_AuthorLineShowsFive(t *testing.T) {
	up := newUpstream()
	up.bodies["/volumes-no-filter/103"] = `{"issue":{"issue_id":103},"articles":[{"submission_id":555,"publication_id":777,"title":"Found","authors":"A Uno; B Dos; C Tres; D Cuatro; E Cinco; F Seis"}]}`
	deps := newTestDeps(t, up, testSettings())

	tests := []struct {
		name string
		load func() string
		want string
	}{
		{
			name: "article detail",
			load: func() string {
				return NewArticleDetail(deps).LoadEntity(context.Background(), 555).Value.Article.AuthorLine
			},
			want: "A Uno, B Dos, C Tres, D Cuatro, E Cinco et al.",
		},
		{
			name: "volume listing",
			load: func() string {
				return NewVolumeDetail(deps).LoadEntity(context.Background(), 103).Value.Detail.Articles[0].AuthorLine
			},
			want: "A Uno, B Dos, C Tres et al.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.load(); got != tt.want {
				t.Errorf("AuthorLine = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestArticleDetail_StopsAtFirstMatch(t *testing.T) {
	up := newUpstream()
	page := NewArticleDetail(newTestDeps(t, up, testSettings()))

	res := page.LoadEntity(context.Background(), 11)
	if res.Status != StatusSuccess {
		t.Fatalf("Status = %q", res.Status)
	}
	want := []string{"/volumes-no-filter/101"}
	if got := up.callsWithPrefix("/volumes-no-filter/"); !reflect.DeepEqual(got, want) {
		t.Errorf("volume detail calls = %v, want %v", got, want)
	}
}

func TestArticleDetail_MatchesPublicationID(t *testing.T) {
	up := newUpstream()
	page := NewArticleDetail(newTestDeps(t, up, testSettings()))

	res := page.LoadEntity(context.Background(), 22)
	if res.Status != StatusSuccess || res.Value.Article.SubmissionID != 12 {
		t.Errorf("LoadEntity(22) = %q %+v", res.Status, res.Value.Article)
	}
}

func TestArticleDetail_NotFound(t *testing.T) {
	up := newUpstream()
	page := NewArticleDetail(newTestDeps(t, up, testSettings()))

	res := page.LoadEntity(context.Background(), 4242)
	if res.Status != StatusFailed || res.Err.Category != CategoryNotFound {
		t.Fatalf("LoadEntity() = %q %+v", res.Status, res.Err)
	}
	if got := up.callsWithPrefix("/volumes-no-filter/"); len(got) != 3 {
		t.Errorf("volume detail calls = %v, want all 3", got)
	}
}

func TestArticleDetail_SkipsFailingVolume(t *testing.T) {
	up := newUpstream()
	up.fail("/volumes-no-filter/102", http.StatusInternalServerError)
	page := NewArticleDetail(newTestDeps(t, up, testSettings()))

	res := page.LoadEntity(context.Background(), 555)
	if res.Status != StatusSuccess || res.Value.Volume.IssueID != 103 {
		t.Errorf("LoadEntity() = %q in volume %d", res.Status, res.Value.Volume.IssueID)
	}
}

func TestArticleDetail_EveryVolumeFailing(t *testing.T) {
	up := newUpstream()
	for _, id := range []string{"101", "102", "103"} {
		up.fail("/volumes-no-filter/"+id, http.StatusInternalServerError)
	}
	page := NewArticleDetail(newTestDeps(t, up, testSettings()))

	res := page.LoadEntity(context.Background(), 555)
	if res.Status != StatusFailed || res.Err.Category != CategoryServerError {
		t.Errorf("LoadEntity() = %q %+v", res.Status, res.Err)
	}
}

func TestArticleDetail_SecondaryFailureIsPartial(t *testing.T) {
	up := newUpstream()
	up.fail("/admin/homepage/featured", http.StatusInternalServerError)
	page := NewArticleDetail(newTestDeps(t, up, testSettings()))

	res := page.LoadEntity(context.Background(), 555)
	if res.Status != StatusPartialSuccess {
		t.Fatalf("Status = %q, want partial-success", res.Status)
	}
	if res.Failures[labelHybrid] == nil || res.Failures[labelSimilar] != nil {
		t.Errorf("Failures = %v", res.Failures)
	}
	if len(res.Value.Similar.Articles) != 1 {
		t.Error("similar articles should still be shown")
	}
}

func TestArticleDetail_VolumesUnavailable(t *testing.T) {
	up := newUpstream()
	up.fail("/volumes", http.StatusServiceUnavailable)
	page := NewArticleDetail(newTestDeps(t, up, testSettings()))

	res := page.LoadEntity(context.Background(), 555)
	if res.Status != StatusFailed || res.Err.Category != CategoryServerError {
		t.Errorf("LoadEntity() = %q %+v", res.Status, res.Err)
	}
	if got := up.callsWithPrefix("/volumes-no-filter/"); len(got) != 0 {
		t.Errorf("search ran without a volumes list: %v", got)
	}
}

func TestSystemStatus_Load(t *testing.T) {
	up := newUpstream()
	page := NewSystemStatus(newTestDeps(t, up, testSettings()))

	res := page.Load(context.Background())
	if res.Status != StatusSuccess {
		t.Fatalf("Status = %q (failures %v)", res.Status, res.Failures)
	}
	if res.Value.Status == nil || res.Value.Status.SystemStatus != "operational" {
		t.Errorf("Status = %+v", res.Value.Status)
	}
	want := models.SystemStats{
		SystemStatus:                "operational",
		SchedulerRunning:            true,
		ArticlesWithRecommendations: 30,
		TotalRecommendations:        48,
		AverageSimilarity:           0.5,
		CacheRecords:                120,
	}
	if res.Value.Stats != want {
		t.Errorf("Stats = %+v, want %+v", res.Value.Stats, want)
	}
	if res.Value.Health == nil || !res.Value.Health.Healthy() {
		t.Errorf("Health = %+v", res.Value.Health)
	}
	if res.Value.CacheBackend != "memory" {
		t.Errorf("CacheBackend = %q", res.Value.CacheBackend)
	}
}

func TestSystemStatus_PartialAndFailed(t *testing.T) {
	up := newUpstream()
	up.fail("/admin/cache-status", http.StatusInternalServerError)
	page := NewSystemStatus(newTestDeps(t, up, testSettings()))

	res := page.Load(context.Background())
	if res.Status != StatusPartialSuccess || res.Failures[labelCacheStatus] == nil {
		t.Errorf("Load() = %q %v", res.Status, res.Failures)
	}
	if res.Value.CacheStatus != nil || res.Value.Stats.TotalRecommendations != 48 {
		t.Errorf("partial report = %+v", res.Value)
	}

	up.fail("/status", http.StatusInternalServerError)
	up.fail("/health", http.StatusInternalServerError)
	res = page.Load(context.Background())
	if res.Status != StatusFailed || len(res.Failures) != 3 {
		t.Errorf("Load() = %q %v", res.Status, res.Failures)
	}
}
