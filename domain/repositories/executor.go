package repositories

import (
	"context"

	"github.com/voiceast/server/domain/entities"
)

// ActionExecutor performs OS and application level effects.
// Every method returns the executor's own result; a returned error means
// the executor itself failed and the caller decides how to report it.
type ActionExecutor interface {
	OpenApplication(ctx context.Context, name string) (entities.ActionResult, error)
	CloseApplication(ctx context.Context, name string) (entities.ActionResult, error)

	CreateFile(ctx context.Context, filename string) (entities.ActionResult, error)
	DeleteFile(ctx context.Context, filename string) (entities.ActionResult, error)
	ListFiles(ctx context.Context, directory string) (entities.ActionResult, error)
	SearchFiles(ctx context.Context, query, directory string) (entities.ActionResult, error)

	AdjustVolume(ctx context.Context, direction string) (entities.ActionResult, error)
	AdjustBrightness(ctx context.Context, direction string) (entities.ActionResult, error)
	TakeScreenshot(ctx context.Context) (entities.ActionResult, error)
	Shutdown(ctx context.Context) (entities.ActionResult, error)
	Restart(ctx context.Context) (entities.ActionResult, error)
	SystemInfo(ctx context.Context) (entities.ActionResult, error)

	WebSearch(ctx context.Context, query string) (entities.ActionResult, error)
	TypeText(ctx context.Context, text string) (entities.ActionResult, error)
	PressKey(ctx context.Context, key string) (entities.ActionResult, error)
}
