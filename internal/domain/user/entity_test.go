package user

import "testing"

func TestRoleOrdering(t *testing.T) {
	if !RoleSuperuser.AtLeast(RoleManager) {
		t.Error("superuser should outrank manager")
	}
	if !RoleManager.AtLeast(RoleCashier) {
		t.Error("manager should outrank cashier")
	}
	if !RoleCashier.AtLeast(RoleRegular) {
		t.Error("cashier should outrank regular")
	}
	if RoleRegular.AtLeast(RoleCashier) {
		t.Error("regular should not outrank cashier")
	}
	if !RoleRegular.AtLeast(RoleRegular) {
		t.Error("a role should satisfy itself")
	}
	if Role("bogus").AtLeast(RoleRegular) {
		t.Error("unknown roles rank below everything")
	}
}

func TestIsValidRole(t *testing.T) {
	for _, r := range []string{"regular", "cashier", "manager", "superuser"} {
		if !IsValidRole(r) {
			t.Errorf("IsValidRole(%q) = false, want true", r)
		}
	}
	for _, r := range []string{"", "admin", "Regular", "SUPERUSER"} {
		if IsValidRole(r) {
			t.Errorf("IsValidRole(%q) = true, want false", r)
		}
	}
}
