package deployer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShellSingleQuoteEscapesEmbeddedQuotes(t *testing.T) {
	assert.Equal(t, `'foo'"'"'bar'`, shellSingleQuote("foo'bar"))
}

func TestBootcScriptRespectsInstallAndRebootFlags(t *testing.T) {
	script := buildBootcScript(Options{
		Image:        "quay.io/example/node-image:v1",
		InstallBootc: false,
		Reboot:       false,
	})
	assert.NotContains(t, script, "dnf install -y bootc")
	assert.NotContains(t, script, "systemctl reboot")
	assert.Contains(t, script, "bootc switch 'quay.io/example/node-image:v1'")
}

func TestBootcScriptInstallsBootcWhenRequested(t *testing.T) {
	script := buildBootcScript(Options{
		Image:        "quay.io/example/node-image:v1",
		InstallBootc: true,
		Reboot:       true,
	})
	assert.Contains(t, script, "dnf install -y bootc")
	assert.Contains(t, script, "apt-get install -y bootc")
	assert.Contains(t, script, "systemctl reboot")
}

func TestBuildAuthMethodsRequiresCredentials(t *testing.T) {
	_, err := buildAuthMethods(Options{})
	assert.ErrorIs(t, err, ErrMissingAuth)
}

func TestBuildAuthMethodsPrefersPassword(t *testing.T) {
	methods, err := buildAuthMethods(Options{SSHPassword: "secret", SSHPrivateKey: "/nonexistent"})
	assert.NoError(t, err)
	assert.Len(t, methods, 1)
}
