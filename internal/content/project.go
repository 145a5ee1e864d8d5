package content

import "github.com/notifyhub/mail-dispatcher/internal/domain"

const (
	MsgProjectTransfer   = "project_transfer"
	MsgProjectInvitation = "project_invitation"
	MsgAccessRequest     = "access_request"
)

func projectGroup() *Group {
	return MustGroup(domain.CategoryProject,
		Message{
			Name:     MsgProjectTransfer,
			Subject:  `Project Transfer Request – Action Required`,
			Required: []string{"projectName", "projectLink"},
			HTML: `<h2 style="text-align:center;">A project was sent to you</h2>
<p style="text-align:center;">Hi <strong>{{.receiverName | default "there"}}</strong>, {{.senderName | default "a photographer"}} wants to transfer <strong>{{.projectName}}</strong> to you.</p>
<table style="width:100%;font-size:13px;margin:20px 0;">
<tr><td>Files</td><td style="text-align:right;">{{.totalFiles | default 0}}</td></tr>
<tr><td>Total size</td><td style="text-align:right;">{{.totalSize | default "-"}}</td></tr>
</table>
<div style="text-align:center;margin:30px 0;"><a href="{{.projectLink}}" style="background-color:#8B1E1E;color:#fff;text-decoration:none;padding:12px 30px;border-radius:25px;">Review transfer</a></div>`,
			Text: `Hi {{.receiverName | default "there"}},

{{.senderName | default "A photographer"}} wants to transfer "{{.projectName}}" to you ({{.totalFiles | default 0}} files, {{.totalSize | default "unknown size"}}).
Review it here: {{.projectLink}}`,
		},
		Message{
			Name:     MsgProjectInvitation,
			Subject:  `Your Gallery Invitation for "{{.projectName}}"`,
			Required: []string{"projectName", "invitationLink"},
			HTML: `<h2 style="text-align:center;">You're invited</h2>
<p style="text-align:center;">{{.photographerName | default "A photographer"}} shared the gallery <strong>{{.projectName}}</strong> with you.</p>
<div style="text-align:center;margin:30px 0;"><a href="{{.invitationLink}}" style="background-color:#8B1E1E;color:#fff;text-decoration:none;padding:12px 30px;border-radius:25px;">Open gallery</a></div>`,
		},
		Message{
			Name:     MsgAccessRequest,
			Subject:  `Access Request for {{.projectName}} Gallery`,
			Required: []string{"projectName", "requesterEmail"},
			HTML: `<h2 style="text-align:center;">Someone wants access</h2>
<p style="text-align:center;"><strong>{{.requesterEmail}}</strong> requested access to <strong>{{.projectName}}</strong>{{with .photographerName}} shared by {{.}}{{end}}.</p>
<p style="font-size:13px;color:#666;text-align:center;">Project reference: {{.projectId | default "-"}}</p>`,
		},
	)
}
