package vmware

import (
	"context"
	"fmt"

	"github.com/vmware/govmomi/object"
	"github.com/vmware/govmomi/vim25/types"
)

// ValidatePrivileges fails when the manager's user lacks any of required on the VM.
func (m *VMManager) ValidatePrivileges(ctx context.Context, moid string, required []string) error {
	authManager := object.NewAuthorizationManager(m.client)

	results, err := authManager.FetchUserPrivilegeOnEntities(ctx, []types.ManagedObjectReference{refFromMoid(vmType, moid)}, m.username)
	if err != nil {
		return fmt.Errorf("failed to fetch user privileges: %w", err)
	}
	if len(results) == 0 {
		return fmt.Errorf("no privileges returned for user %s", m.username)
	}

	if missing := missingPrivileges(results[0].Privileges, required); len(missing) > 0 {
		return fmt.Errorf("user %s is missing required privileges on %s: %v", m.username, moid, missing)
	}
	return nil
}

func missingPrivileges(granted, required []string) []string {
	have := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		have[p] = struct{}{}
	}

	var missing []string
	for _, r := range required {
		if _, ok := have[r]; !ok {
			missing = append(missing, r)
		}
	}
	return missing
}
