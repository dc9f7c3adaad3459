package services

import (
	"testing"

	"studyloop/models"
)

func TestCapabilitiesForRoles(t *testing.T) {
	settings := models.DefaultGroupSettings(1)

	owner := CapabilitiesFor(models.RoleOwner, settings, false)
	if !owner.Can(CapSettings) || !owner.Can(CapManageMembers) || !owner.Can(CapDeleteSession) {
		t.Fatalf("群主应具备全部能力: %v", owner)
	}

	admin := CapabilitiesFor(models.RoleAdmin, settings, false)
	if admin.Can(CapSettings) {
		t.Fatal("管理员不应能修改小组设置")
	}
	if !admin.Can(CapManageSession) || !admin.Can(CapManageMembers) {
		t.Fatalf("管理员应能审批会话和管理成员: %v", admin)
	}

	member := CapabilitiesFor(models.RoleMember, settings, false)
	if !member.Can(CapCreateSession) || !member.Can(CapStartQuiz) || !member.Can(CapSelectPreset) {
		t.Fatalf("普通成员默认应能创建会话和作答: %v", member)
	}
	if member.Can(CapInvite) || member.Can(CapManageSession) {
		t.Fatalf("普通成员不应具备邀请或审批能力: %v", member)
	}

	guest := CapabilitiesFor(models.RoleGuest, settings, false)
	if len(guest) != 0 {
		t.Fatalf("访客能力集合应为空: %v", guest)
	}

	unknown := CapabilitiesFor("superuser", settings, false)
	if len(unknown) != 0 {
		t.Fatalf("未知角色能力集合应为空: %v", unknown)
	}
}

func TestCapabilitiesForSettingsOverrides(t *testing.T) {
	settings := models.DefaultGroupSettings(1)
	settings.AllowMemberInvitations = true
	settings.OnlyAdminsCanCreateSessions = true
	settings.OnlyAdminsCanStartQuiz = true

	member := CapabilitiesFor(models.RoleMember, settings, false)
	if !member.Can(CapInvite) {
		t.Fatal("开启成员邀请后普通成员应具备邀请能力")
	}
	if member.Can(CapCreateSession) {
		t.Fatal("限制后普通成员不应能创建会话")
	}
	if member.Can(CapStartQuiz) {
		t.Fatal("限制后普通成员不应能开始作答")
	}

	// 限制项只作用于普通成员
	admin := CapabilitiesFor(models.RoleAdmin, settings, false)
	if !admin.Can(CapCreateSession) || !admin.Can(CapStartQuiz) {
		t.Fatalf("限制项不应影响管理员: %v", admin)
	}
}

func TestCapabilitiesForAdminRestrictions(t *testing.T) {
	settings := models.DefaultGroupSettings(1)
	settings.AdminCanManageMembers = false
	settings.AdminCanDeleteSessions = false

	admin := CapabilitiesFor(models.RoleAdmin, settings, false)
	if admin.Can(CapManageMembers) {
		t.Fatal("关闭后管理员不应能管理成员")
	}
	if admin.Can(CapDeleteSession) {
		t.Fatal("关闭后管理员不应能删除会话")
	}

	owner := CapabilitiesFor(models.RoleOwner, settings, false)
	if !owner.Can(CapManageMembers) || !owner.Can(CapDeleteSession) {
		t.Fatal("管理员限制项不应影响群主")
	}
}

func TestCapabilitiesForSessionCreator(t *testing.T) {
	settings := models.DefaultGroupSettings(1)
	settings.OnlyAdminsCanStartQuiz = true

	creator := CapabilitiesFor(models.RoleMember, settings, true)
	if !creator.Can(CapManageSession) || !creator.Can(CapManageQuiz) {
		t.Fatalf("会话创建者应能管理自己的会话: %v", creator)
	}
	if !creator.Can(CapStartQuiz) || !creator.Can(CapGenerateQuestions) || !creator.Can(CapSelectPreset) {
		t.Fatalf("会话创建者补充应覆盖作答限制: %v", creator)
	}
	if creator.Can(CapInvite) || creator.Can(CapSettings) {
		t.Fatalf("会话创建者补充不应扩散到小组管理能力: %v", creator)
	}

	// 访客即使是创建者也没有任何能力
	guest := CapabilitiesFor(models.RoleGuest, settings, true)
	if guest.Can(CapManageSession) {
		t.Fatal("访客不应通过创建者补充获得能力")
	}
}

func TestCapabilitiesForNilSettings(t *testing.T) {
	admin := CapabilitiesFor(models.RoleAdmin, nil, false)
	if !admin.Can(CapManageMembers) || !admin.Can(CapDeleteSession) {
		t.Fatalf("设置缺失时应按默认设置计算: %v", admin)
	}

	member := CapabilitiesFor(models.RoleMember, nil, false)
	if member.Can(CapInvite) {
		t.Fatal("默认设置下普通成员不应能邀请")
	}
}
