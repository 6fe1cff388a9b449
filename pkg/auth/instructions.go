package auth

import (
	"fmt"
	"io"
	"strings"
)

// WriteTokenGuide prints how to obtain a bearer token for a script app
func WriteTokenGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "OBTAINING AN API ACCESS TOKEN")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Anonymous access works but is throttled hard. A token from a")
	fmt.Fprintln(w, "personal script app raises the limits and uses oauth.reddit.com.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "1. Visit https://www.reddit.com/prefs/apps and create an app of type 'script'.")
	fmt.Fprintln(w, "   Note the client id (under the app name) and the secret.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "2. Request a token with the password grant:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "   curl -A 'threadscraper/0.1 by <your username>' \\")
	fmt.Fprintln(w, "        -u '<client id>:<secret>' \\")
	fmt.Fprintln(w, "        -d 'grant_type=password&username=<user>&password=<pass>' \\")
	fmt.Fprintln(w, "        https://www.reddit.com/api/v1/access_token")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "3. Copy access_token from the response into 'threadscraper auth login'.")
	fmt.Fprintln(w, "   Tokens last one hour (expires_in); pass --expires-in to record that.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Use a descriptive user agent that names your account; generic browser")
	fmt.Fprintln(w, "agents are throttled more aggressively.")
	fmt.Fprintln(w, rule)
}
