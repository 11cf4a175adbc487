package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tombee/odoo-mcp-bridge/internal/rpcerr"
)

func TestMergeContext_OverlayWinsAndInputsUntouched(t *testing.T) {
	base := BaseContext{"lang": "en_US", "tz": "UTC"}
	overlay := map[string]interface{}{"tz": "America/New_York", "active_test": false}

	merged := MergeContext(base, overlay)

	assert.Equal(t, "en_US", merged["lang"])
	assert.Equal(t, "America/New_York", merged["tz"])
	assert.Equal(t, false, merged["active_test"])

	// original inputs unchanged
	assert.Equal(t, "UTC", base["tz"])
	assert.Len(t, overlay, 2)
}

func TestMergeContext_NilOverlay(t *testing.T) {
	base := BaseContext{"lang": "en_US"}
	merged := MergeContext(base, nil)
	assert.Equal(t, "en_US", merged["lang"])
}

func TestClassifyAuthFailure(t *testing.T) {
	uid, err := classifyAuthFailure(5, nil)
	assert.NoError(t, err)
	assert.Equal(t, 5, uid)

	_, err = classifyAuthFailure(0, nil)
	var authErr *rpcerr.AuthenticationError
	assert.ErrorAs(t, err, &authErr)

	_, err = classifyAuthFailure(-1, nil)
	assert.ErrorAs(t, err, &authErr)
}
