package checks

import (
	"context"

	"github.com/fekuna/omnipos-backoffice/internal/channel"
	"github.com/fekuna/omnipos-backoffice/internal/model"
	"github.com/fekuna/omnipos-backoffice/internal/validation"
)

// platformBays compares the platform's bay list with the local one. A
// platform that cannot be reached fails the runner, keeping its last logs.
func platformBays(d Deps) validation.LoadFunc {
	return func(ctx context.Context) ([]validation.Validator, error) {
		remote, err := d.Platform.Bays(ctx)
		if err != nil {
			return nil, err
		}
		local, err := d.Repo.ListBays(ctx)
		if err != nil {
			return nil, err
		}
		localByName := make(map[string]model.Bay, len(local))
		for _, b := range local {
			localByName[b.Name] = b
		}
		remoteNames := make(map[string]bool, len(remote))
		for _, b := range remote {
			remoteNames[b.Name] = true
		}

		return []validation.Validator{
			validation.NewObjectValidator("platform_bays", remote,
				validation.Check[channel.Bay]{Name: "known_bay", Level: validation.Error,
					Test: func(b channel.Bay) (string, bool) {
						if _, ok := localByName[b.Name]; ok {
							return pass()
						}
						return fail("Platform bay %s does not exist locally", b.Name)
					}},
				validation.Check[channel.Bay]{Name: "warehouse_matches", Level: validation.Warning,
					Test: func(b channel.Bay) (string, bool) {
						l, ok := localByName[b.Name]
						if !ok || l.Warehouse == b.Warehouse {
							return pass()
						}
						return fail("Bay %s is in warehouse %q locally but %q on the platform", b.Name, l.Warehouse, b.Warehouse)
					}},
			),
			validation.NewObjectValidator("local_bays", local,
				validation.Check[model.Bay]{Name: "on_platform", Level: validation.Warning,
					Test: func(b model.Bay) (string, bool) {
						if !b.Active || remoteNames[b.Name] {
							return pass()
						}
						return fail("Active bay %s is missing from the platform", b.Name)
					}},
			),
		}, nil
	}
}
