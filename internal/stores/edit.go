package stores

import (
	"net/url"

	"dxt-admin/internal/domain"
)

// EditForm is the edit modal. Snapshot holds the values loaded when the
// modal opened; the rest is what the admin submitted.
type EditForm struct {
	snapshot editValues
	values   editValues
}

type editValues struct {
	StoreName        string
	StoreDescription string
	OwnerName        string
	BusinessName     string
	PhoneNumber      string
	WhatsappNumber   string
	Email            string
	WebsiteURL       string
}

// editFields lists the editable fields in display order.
var editFields = []string{
	"storeName",
	"storeDescription",
	"ownerName",
	"businessName",
	"phoneNumber",
	"whatsappNumber",
	"email",
	"websiteUrl",
}

func (v *editValues) field(name string) *string {
	switch name {
	case "storeName":
		return &v.StoreName
	case "storeDescription":
		return &v.StoreDescription
	case "ownerName":
		return &v.OwnerName
	case "businessName":
		return &v.BusinessName
	case "phoneNumber":
		return &v.PhoneNumber
	case "whatsappNumber":
		return &v.WhatsappNumber
	case "email":
		return &v.Email
	case "websiteUrl":
		return &v.WebsiteURL
	}
	return nil
}

// NewEditForm pre-fills the modal from store. Missing whatsapp and website
// values start as empty strings.
func NewEditForm(store domain.StoreDetail) *EditForm {
	snap := editValues{
		StoreName:        store.StoreName,
		StoreDescription: store.StoreDescription,
		OwnerName:        store.OwnerName,
		BusinessName:     store.BusinessName,
		PhoneNumber:      store.PhoneNumber,
		WhatsappNumber:   store.WhatsappNumber,
		Email:            store.Email,
		WebsiteURL:       store.WebsiteURL,
	}
	return &EditForm{snapshot: snap, values: snap}
}

var editLabels = map[string]string{
	"storeName":        "Store Name",
	"storeDescription": "Description",
	"ownerName":        "Owner Name",
	"businessName":     "Business Name",
	"phoneNumber":      "Phone Number",
	"whatsappNumber":   "WhatsApp Number",
	"email":            "Email",
	"websiteUrl":       "Website URL",
}

// EditField is one input of the modal.
type EditField struct {
	Name     string
	Label    string
	Value    string
	Original string
}

func (f *EditForm) Fields() []EditField {
	out := make([]EditField, 0, len(editFields))
	for _, name := range editFields {
		out = append(out, EditField{
			Name:     name,
			Label:    editLabels[name],
			Value:    *f.values.field(name),
			Original: *f.snapshot.field(name),
		})
	}
	return out
}

// Values returns the current form values keyed by field name.
func (f *EditForm) Values() map[string]string {
	out := make(map[string]string, len(editFields))
	for _, name := range editFields {
		out[name] = *f.values.field(name)
	}
	return out
}

// Set changes one field. Unknown names are ignored.
func (f *EditForm) Set(name, value string) {
	if p := f.values.field(name); p != nil {
		*p = value
	}
}

// Bind copies every submitted field present in form.
func (f *EditForm) Bind(form url.Values) {
	for _, name := range editFields {
		if vs, ok := form[name]; ok && len(vs) > 0 {
			f.Set(name, vs[0])
		}
	}
}

// SnapshotPrefix marks the hidden fields that carry the values the modal
// opened with.
const SnapshotPrefix = "original."

// Snapshot returns the opening values keyed by hidden field name.
func (f *EditForm) Snapshot() map[string]string {
	out := make(map[string]string, len(editFields))
	for _, name := range editFields {
		out[SnapshotPrefix+name] = *f.snapshot.field(name)
	}
	return out
}

// EditFormFromPost rebuilds the modal from a submitted form: the snapshot
// from the hidden fields, the values from the visible ones.
func EditFormFromPost(form url.Values) *EditForm {
	f := &EditForm{}
	for _, name := range editFields {
		*f.snapshot.field(name) = form.Get(SnapshotPrefix + name)
	}
	f.values = f.snapshot
	f.Bind(form)
	return f
}

// Diff returns a request carrying only the fields that differ from the
// snapshot.
func (f *EditForm) Diff() domain.UpdateStoreRequest {
	var req domain.UpdateStoreRequest
	targets := map[string]**string{
		"storeName":        &req.StoreName,
		"storeDescription": &req.StoreDescription,
		"ownerName":        &req.OwnerName,
		"businessName":     &req.BusinessName,
		"phoneNumber":      &req.PhoneNumber,
		"whatsappNumber":   &req.WhatsappNumber,
		"email":            &req.Email,
		"websiteUrl":       &req.WebsiteURL,
	}
	for _, name := range editFields {
		current := *f.values.field(name)
		if current != *f.snapshot.field(name) {
			v := current
			*targets[name] = &v
		}
	}
	return req
}
