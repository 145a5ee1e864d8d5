package content

import "github.com/notifyhub/mail-dispatcher/internal/domain"

const (
	MsgStorageWarning  = "storage_warning"
	MsgStorageFull     = "storage_full"
	MsgAddonExpiry     = "addon_expiry"
	MsgAddonFinalGrace = "addon_final_grace"
)

func storageGroup() *Group {
	return MustGroup(domain.CategoryStorage,
		Message{
			Name:     MsgStorageWarning,
			Subject:  `Storage Warning: Your Storage is Almost Full`,
			Required: []string{"percentUsed"},
			HTML: `<h2 style="color:#ff9800;text-align:center;">Storage Warning</h2>
<p style="text-align:center;">Hi <strong>{{.userName}}</strong>,<br><br>Your storage is {{.percentUsed}}% full ({{.storageUsed | default "?"}} GB of {{.storageLimit | default "?"}} GB used).</p>
<p style="font-size:13px;color:#666;text-align:center;">Consider upgrading your plan or deleting unused files to avoid service interruption.</p>`,
			Text: `Hi {{.userName}},

Your storage is {{.percentUsed}}% full ({{.storageUsed | default "?"}} GB of {{.storageLimit | default "?"}} GB).

Consider upgrading your plan or deleting unused files.`,
		},
		Message{
			Name:    MsgStorageFull,
			Subject: `Storage Full: Immediate Action Required`,
			HTML: `<h2 style="color:#f44336;text-align:center;">Storage Full</h2>
<p style="text-align:center;">Hi <strong>{{.userName}}</strong>,<br><br>Your storage is completely full ({{.storageLimit | default "?"}} GB). You cannot upload new files until you free up space or upgrade your plan.</p>`,
			Text: `Hi {{.userName}},

Your storage is completely full ({{.storageLimit | default "?"}} GB). Free up space or upgrade your plan to keep uploading.`,
		},
		Message{
			Name:     MsgAddonExpiry,
			Subject:  `Your Addon Storage of {{.addonLimit}} GB Has Expired`,
			Required: []string{"addonLimit", "renewLink"},
			HTML: `<h2 style="text-align:center;">Addon storage expired</h2>
<p style="text-align:center;">Hi <strong>{{.userName}}</strong>, your {{.addonLimit}} GB storage addon has expired.</p>
<table style="width:100%;font-size:13px;margin:20px 0;">
<tr><td>Expired addon</td><td style="text-align:right;">{{.addonLimit}} GB</td></tr>
<tr><td>New storage limit</td><td style="text-align:right;">{{.newStorageLimit | default "?"}} GB</td></tr>
<tr><td>Storage used</td><td style="text-align:right;">{{.storageUsed | default "?"}} GB</td></tr>
</table>
{{if and .graceApplied (gt (float64 (.storageUsed | default 0)) (float64 (.newStorageLimit | default 0)))}}
<p style="text-align:center;color:#8B1E1E;">You are over your new limit. Files beyond it will be removed after <strong>{{.graceEnd | default "the grace period"}}</strong>.</p>
{{end}}
<div style="text-align:center;margin:30px 0;"><a href="{{.renewLink}}" style="background-color:#8B1E1E;color:#fff;text-decoration:none;padding:12px 30px;border-radius:25px;">Renew addon</a></div>`,
			Text: `Your addon storage of {{.addonLimit}} GB has expired.`,
		},
		Message{
			Name:     MsgAddonFinalGrace,
			Subject:  `Final Reminder: {{.graceDaysRemaining}} Day{{if gt (int .graceDaysRemaining) 1}}s{{end}} Remaining Before Data Deletion`,
			Required: []string{"graceDaysRemaining"},
			HTML: `<h2 style="text-align:center;">Final reminder</h2>
<p style="text-align:center;">Hi <strong>{{.userName}}</strong>, your grace period will end in {{.graceDaysRemaining}} day{{if gt (int .graceDaysRemaining) 1}}s{{end}}.</p>
<p style="text-align:center;">Storage used: {{.storageUsed | default "?"}} GB</p>
<div style="text-align:center;margin:30px 0;">
{{with .renewLink}}<a href="{{.}}" style="background-color:#8B1E1E;color:#fff;text-decoration:none;padding:12px 30px;border-radius:25px;">Renew</a>{{end}}
{{with .deleteLink}}<a href="{{.}}" style="color:#8B1E1E;margin-left:20px;">Manage files</a>{{end}}
</div>`,
			Text: `Final reminder: {{.graceDaysRemaining}} days remaining before data deletion.`,
		},
	)
}
