package jenkins

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ItemType classifies an entry in the Jenkins item hierarchy.
type ItemType string

const (
	// ItemNone means the item does not exist.
	ItemNone ItemType = ""
	// ItemFolder is a container (CloudBees folder or equivalent).
	ItemFolder ItemType = "folder"
	// ItemNonFolder is any job-like leaf: freestyle, pipeline, etc.
	ItemNonFolder ItemType = "non-folder"
)

// folderConfigXML is the minimal descriptor accepted by createItem for a
// plain folder.
const folderConfigXML = `<?xml version='1.0' encoding='UTF-8'?>
<com.cloudbees.hudson.plugins.folder.Folder/>
`

// itemDescriptor only captures the document's root element; the root name is
// what distinguishes folders from jobs.
type itemDescriptor struct {
	XMLName xml.Name
}

// folderListing captures the job-type children of a folder descriptor.
type folderListing struct {
	Jobs []struct {
		Name string `xml:"name"`
	} `xml:"job"`
}

// GetItemType reports whether item exists and, if so, whether it is a folder.
// A missing item is ItemNone with a nil error, never a failure.
func (c *Client) GetItemType(ctx context.Context, item string) (ItemType, error) {
	var desc itemDescriptor
	err := c.getXML(ctx, c.baseURL+itemPath(item)+"/api/xml", &desc)
	if IsNotFound(err) {
		return ItemNone, nil
	}
	if err != nil {
		return ItemNone, fmt.Errorf("get item %s: %w", item, err)
	}
	if strings.Contains(strings.ToLower(desc.XMLName.Local), "folder") {
		return ItemFolder, nil
	}
	return ItemNonFolder, nil
}

// DeleteItem removes an item. It returns true when the item was deleted and
// false when it did not exist in the first place.
func (c *Client) DeleteItem(ctx context.Context, item string) (bool, error) {
	_, err := c.post(ctx, c.baseURL+itemPath(item)+"/doDelete", "", nil)
	if IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete item %s: %w", item, err)
	}
	return true, nil
}

// CreateJob creates a new job from a config.xml document. The parent folders
// must already exist.
func (c *Client) CreateJob(ctx context.Context, job, configXML string) error {
	parent, leaf := splitParent(job)
	if leaf == "" {
		return fmt.Errorf("create job: empty job name")
	}
	createURL := c.baseURL + itemPath(parent) + "/createItem?name=" + url.QueryEscape(leaf)
	if _, err := c.post(ctx, createURL, "application/xml", strings.NewReader(configXML)); err != nil {
		return fmt.Errorf("create job %s: %w", job, err)
	}
	return nil
}

// UpdateJob replaces an existing job's config.xml.
func (c *Client) UpdateJob(ctx context.Context, job, configXML string) error {
	updateURL := c.baseURL + itemPath(job) + "/config.xml"
	if _, err := c.post(ctx, updateURL, "application/xml", strings.NewReader(configXML)); err != nil {
		return fmt.Errorf("update job %s: %w", job, err)
	}
	return nil
}

// CreateUpdateJob creates the job if it is absent and updates it if it
// already exists. A folder at the same path is a usage error: folders cannot
// be turned into jobs.
func (c *Client) CreateUpdateJob(ctx context.Context, job, configXML string) error {
	itemType, err := c.GetItemType(ctx, job)
	if err != nil {
		return err
	}
	switch itemType {
	case ItemFolder:
		return fmt.Errorf("cannot update %s as a job: it is a folder", job)
	case ItemNonFolder:
		return c.UpdateJob(ctx, job, configXML)
	default:
		return c.CreateJob(ctx, job, configXML)
	}
}

// CreateUpdateJobFromTemplate instantiates a job from a template item. The
// parameters are posted as a flat <values> document; the template plugin
// creates or reconfigures the named job.
func (c *Client) CreateUpdateJobFromTemplate(ctx context.Context, template, job string, parameters map[string]string) error {
	instantiateURL := c.baseURL + itemPath(template) + "/instantiate?job=" + url.QueryEscape(job)
	body := valuesXML(parameters)
	if _, err := c.post(ctx, instantiateURL, "application/xml", strings.NewReader(body)); err != nil {
		return fmt.Errorf("instantiate job %s from template %s: %w", job, template, err)
	}
	return nil
}

// CreateSimpleFolder creates a plain folder and returns true, or returns
// false when a folder already exists at that path. A job occupying the path
// is a usage error.
func (c *Client) CreateSimpleFolder(ctx context.Context, folder string) (bool, error) {
	itemType, err := c.GetItemType(ctx, folder)
	if err != nil {
		return false, err
	}
	switch itemType {
	case ItemFolder:
		return false, nil
	case ItemNonFolder:
		return false, fmt.Errorf("cannot create folder %s: a job exists at that path", folder)
	}
	parent, leaf := splitParent(folder)
	if leaf == "" {
		return false, fmt.Errorf("create folder: empty folder name")
	}
	createURL := c.baseURL + itemPath(parent) + "/createItem?name=" + url.QueryEscape(leaf)
	if _, err := c.post(ctx, createURL, "application/xml", strings.NewReader(folderConfigXML)); err != nil {
		return false, fmt.Errorf("create folder %s: %w", folder, err)
	}
	return true, nil
}

// FolderHasJobs reports whether the folder contains at least one job-type
// child.
func (c *Client) FolderHasJobs(ctx context.Context, folder string) (bool, error) {
	var listing folderListing
	if err := c.getXML(ctx, c.baseURL+itemPath(folder)+"/api/xml", &listing); err != nil {
		return false, fmt.Errorf("list folder %s: %w", folder, err)
	}
	return len(listing.Jobs) > 0, nil
}

// valuesXML serializes template parameters as <values><key>value</key>...</values>.
// Keys are emitted in sorted order so the document is deterministic.
func valuesXML(parameters map[string]string) string {
	keys := make([]string, 0, len(parameters))
	for k := range parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("<values>")
	for _, k := range keys {
		b.WriteString("<" + k + ">")
		_ = xml.EscapeText(&b, []byte(parameters[k]))
		b.WriteString("</" + k + ">")
	}
	b.WriteString("</values>")
	return b.String()
}
