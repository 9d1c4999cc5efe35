package constants

// DefaultBaseURL is the root of the subdivx site. Login, logout, search and
// download referers are all built from it.
const DefaultBaseURL = "https://www.subdivx.com/"

// DefaultUserAgent identifies the client when no user agent is configured.
const DefaultUserAgent = "SubdivxGo/0.1"

// DefaultTimeout is the per-request timeout in seconds.
const DefaultTimeout = 10

// Site paths. SearchPathTemplate takes the page number and the
// query-escaped search string, in that order.
const (
	LoginPath          = "index.php"
	LogoutPath         = "index.php?abandon=1"
	SearchPathTemplate = "index.php?accion=5&masdesc=&oxdown=1&pg=%d&buscar=%s"
)

// LoginFailurePhrase is the only signal the site gives for rejected credentials.
const LoginFailurePhrase = "Nick o Password incorrectos"
