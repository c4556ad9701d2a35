package email

import (
	"bytes"
	"fmt"
	htemplate "html/template"
	ttemplate "text/template"
	"time"
)

// vars son las variables expuestas a los templates.
type vars struct {
	Link    string
	TTL     string
	Tenant  string
	Inviter string
	Role    string
}

var subjects = map[Kind]string{
	KindConfirmEmail:  "Confirma tu email",
	KindPasswordReset: "Restablecé tu contraseña",
	KindInvitation:    "Te invitaron a {{.Tenant}}",
}

var textBodies = map[Kind]string{
	KindConfirmEmail: `Hola,

Confirmá tu dirección de email abriendo este link:

{{.Link}}

El link vence en {{.TTL}}. Si no creaste una cuenta, ignorá este mensaje.
`,
	KindPasswordReset: `Hola,

Pediste restablecer tu contraseña. Abrí este link para continuar:

{{.Link}}

El link vence en {{.TTL}}. Si no fuiste vos, ignorá este mensaje: tu
contraseña no cambió.
`,
	KindInvitation: `Hola,

{{if .Inviter}}{{.Inviter}} te invitó{{else}}Te invitaron{{end}} a sumarte a {{.Tenant}}{{if .Role}} como {{.Role}}{{end}}.

Aceptá la invitación acá:

{{.Link}}

La invitación vence en {{.TTL}}.
`,
}

var htmlBodies = map[Kind]string{
	KindConfirmEmail: `<p>Hola,</p>
<p>Confirmá tu dirección de email haciendo click en el botón:</p>
<p><a href="{{.Link}}">Confirmar email</a></p>
<p>El link vence en {{.TTL}}. Si no creaste una cuenta, ignorá este mensaje.</p>`,
	KindPasswordReset: `<p>Hola,</p>
<p>Pediste restablecer tu contraseña:</p>
<p><a href="{{.Link}}">Restablecer contraseña</a></p>
<p>El link vence en {{.TTL}}. Si no fuiste vos, ignorá este mensaje: tu contraseña no cambió.</p>`,
	KindInvitation: `<p>Hola,</p>
<p>{{if .Inviter}}{{.Inviter}} te invitó{{else}}Te invitaron{{end}} a sumarte a <strong>{{.Tenant}}</strong>{{if .Role}} como {{.Role}}{{end}}.</p>
<p><a href="{{.Link}}">Aceptar invitación</a></p>
<p>La invitación vence en {{.TTL}}.</p>`,
}

// render compila subject + cuerpos para un kind.
func render(kind Kind, p Payload) (subject, text, html string, err error) {
	v := vars{
		Link:    p.Link,
		TTL:     humanTTL(p.TTL),
		Tenant:  p.TenantName,
		Inviter: p.InviterName,
		Role:    p.RoleName,
	}
	if v.Tenant == "" {
		v.Tenant = "la organización"
	}

	subject, err = renderText(subjects[kind], v)
	if err != nil {
		return "", "", "", fmt.Errorf("email: subject template: %w", err)
	}
	text, err = renderText(textBodies[kind], v)
	if err != nil {
		return "", "", "", fmt.Errorf("email: text template: %w", err)
	}
	html, err = renderHTML(htmlBodies[kind], v)
	if err != nil {
		return "", "", "", fmt.Errorf("email: html template: %w", err)
	}
	return subject, text, html, nil
}

func renderText(tmpl string, v vars) (string, error) {
	t, err := ttemplate.New("t").Parse(tmpl)
	if err != nil {
		return "", err
	}
	var b bytes.Buffer
	if err := t.Execute(&b, v); err != nil {
		return "", err
	}
	return b.String(), nil
}

func renderHTML(tmpl string, v vars) (string, error) {
	t, err := htemplate.New("h").Parse(tmpl)
	if err != nil {
		return "", err
	}
	var b bytes.Buffer
	if err := t.Execute(&b, v); err != nil {
		return "", err
	}
	return b.String(), nil
}

// humanTTL: "24 horas", "1 hora", "7 días", "45 minutos".
func humanTTL(d time.Duration) string {
	switch {
	case d >= 24*time.Hour && d%(24*time.Hour) == 0:
		n := int(d / (24 * time.Hour))
		if n == 1 {
			return "1 día"
		}
		return fmt.Sprintf("%d días", n)
	case d >= time.Hour:
		n := int(d / time.Hour)
		if n == 1 {
			return "1 hora"
		}
		return fmt.Sprintf("%d horas", n)
	default:
		n := int(d / time.Minute)
		if n <= 1 {
			return "1 minuto"
		}
		return fmt.Sprintf("%d minutos", n)
	}
}
