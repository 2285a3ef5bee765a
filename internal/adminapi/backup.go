package adminapi

import (
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/agrinet/becknmart/internal/webserver"
)

func registerBackupRoutes() {
	webserver.ApiPOST("/network/backup", triggerBackup)
}

// triggerBackup snapshots the network store immediately
func triggerBackup(c echo.Context) error {
	appCtx := GetAppContext(c)
	name, err := appCtx.RunBackupNow()
	if err != nil {
		return fail(c, http.StatusInternalServerError, "BACKUP_FAILED", "Failed to back up network store", err.Error())
	}
	return ok(c, map[string]string{"file": filepath.Base(name)})
}
