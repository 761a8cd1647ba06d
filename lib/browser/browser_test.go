package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/stretchr/testify/require"
)

func TestOptionsDefaults(t *testing.T) {
	opts := Options{}.withDefaults()
	require.Equal(t, 30*time.Second, opts.NavigationTimeout)
	require.Equal(t, 5*time.Second, opts.SettleTimeout)

	opts = Options{NavigationTimeout: time.Second, SettleTimeout: time.Millisecond}.withDefaults()
	require.Equal(t, time.Second, opts.NavigationTimeout)
	require.Equal(t, time.Millisecond, opts.SettleTimeout)
}

func TestBoundedReleasesDeadline(t *testing.T) {
	b := rod.New()

	var limited context.Context
	err := bounded(b, time.Hour, func(b *rod.Browser) error {
		limited = b.GetContext()
		_, ok := limited.Deadline()
		require.True(t, ok)
		require.NoError(t, limited.Err())
		return io.ErrUnexpectedEOF
	})
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.ErrorIs(t, limited.Err(), context.Canceled)
	require.NoError(t, b.GetContext().Err())
}

func TestSessionError(t *testing.T) {
	err := fmt.Errorf("navigate to https://shop.test/reviews: %w", io.EOF)

	// the browser still answers, only the page failed
	require.Equal(t, err, sessionError(err, nil))

	lost := sessionError(err, errors.New("use of closed network connection"))
	require.ErrorIs(t, lost, ErrSessionLost)
	require.ErrorIs(t, lost, io.EOF)
	require.NotErrorIs(t, lost, ErrSessionClosed)
}

// the remaining tests drive a real chromium, they only run when
// REVIEWHARVEST_BROWSER_TESTS is set.
func launchForTesting(t *testing.T) *Session {
	if os.Getenv("REVIEWHARVEST_BROWSER_TESTS") == "" {
		t.Skip("set REVIEWHARVEST_BROWSER_TESTS to run tests against a real browser")
	}

	session, err := Launch(context.Background(), Options{
		Headless:      true,
		NoSandbox:     true,
		SettleTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		require.NoError(t, session.Close())
		require.NoError(t, session.Close())
	})
	return session
}

const loadMorePage = `<!DOCTYPE html>
<html>
<body>
	<div id="reviews"><div class="review">review 1</div></div>
	<button id="page-load-more">load more</button>
	<script>
		let loads = 0;
		document.getElementById("page-load-more").addEventListener("click", () => {
			loads++;
			const div = document.createElement("div");
			div.className = "review";
			div.textContent = "review " + (loads + 1);
			document.getElementById("reviews").appendChild(div);
			if (loads >= %d) {
				document.getElementById("page-load-more").remove();
			}
		});
	</script>
</body>
</html>`

func serve(t *testing.T, body string) string {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestClickLoadMoreStopsWhenTriggerDisappears(t *testing.T) {
	session := launchForTesting(t)
	link := serve(t, fmt.Sprintf(loadMorePage, 2))

	page, err := session.Open(context.Background(), link, ClickLoadMore{
		Selector:      "#page-load-more",
		MaxAttempts:   5,
		WaitTimeout:   time.Second,
		SettleTimeout: time.Second,
	})
	require.NoError(t, err)
	require.Equal(t, 3, strings.Count(page.HTML, `class="review"`))
}

func TestClickLoadMoreRespectsCeiling(t *testing.T) {
	session := launchForTesting(t)
	link := serve(t, fmt.Sprintf(loadMorePage, 100))

	page, err := session.Open(context.Background(), link, ClickLoadMore{
		Selector:      "#page-load-more",
		MaxAttempts:   3,
		WaitTimeout:   time.Second,
		SettleTimeout: time.Second,
	})
	require.NoError(t, err)
	require.Equal(t, 4, strings.Count(page.HTML, `class="review"`))
}

func TestClickLoadMoreWithoutTrigger(t *testing.T) {
	session := launchForTesting(t)
	link := serve(t, `<html><body><div class="review">only</div></body></html>`)

	start := time.Now()
	page, err := session.Open(context.Background(), link, ClickLoadMore{
		Selector:      "#page-load-more",
		MaxAttempts:   5,
		WaitTimeout:   300 * time.Millisecond,
		SettleTimeout: time.Second,
	})
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(page.HTML, `class="review"`))
	require.Less(t, time.Since(start), 10*time.Second)
}

func TestOpenAfterClose(t *testing.T) {
	session := launchForTesting(t)
	require.NoError(t, session.Close())

	_, err := session.Open(context.Background(), "about:blank", nil)
	require.ErrorIs(t, err, ErrSessionClosed)
}

func TestOpenAfterBrowserDied(t *testing.T) {
	session := launchForTesting(t)
	link := serve(t, `<html><body>ok</body></html>`)

	_, err := session.Open(context.Background(), link, nil)
	require.NoError(t, err)

	session.launcher.Kill()
	_, err = session.Open(context.Background(), link, nil)
	require.ErrorIs(t, err, ErrSessionLost)
}
