package tasks

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/go-faster/errors"
	"google.golang.org/api/cloudtasks/v2"
	"google.golang.org/api/option"
)

type CloudTasksOptions struct {
	Project  string
	Location string
	Queue    string
	// HandleURL receives the task POST.
	HandleURL string
	// ServiceAccountEmail signs the OIDC token attached to each task. The
	// handle endpoint checks the token email against it.
	ServiceAccountEmail string
	// Audience of the OIDC token; HandleURL when empty.
	Audience string
}

type CloudTasksScheduler struct {
	tasks *cloudtasks.ProjectsLocationsQueuesTasksService
	opts  CloudTasksOptions
}

func NewCloudTasksScheduler(ctx context.Context, opts CloudTasksOptions, clientOpts ...option.ClientOption) (*CloudTasksScheduler, error) {
	if opts.Project == "" || opts.Location == "" || opts.Queue == "" {
		return nil, errors.New("cloud tasks project, location and queue are required")
	}
	if opts.HandleURL == "" {
		return nil, errors.New("cloud tasks handle url is required")
	}
	if opts.Audience == "" {
		opts.Audience = opts.HandleURL
	}
	svc, err := cloudtasks.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "cloud tasks client")
	}
	return &CloudTasksScheduler{tasks: svc.Projects.Locations.Queues.Tasks, opts: opts}, nil
}

func (s *CloudTasksScheduler) queue() string {
	return fmt.Sprintf("projects/%s/locations/%s/queues/%s", s.opts.Project, s.opts.Location, s.opts.Queue)
}

func (s *CloudTasksScheduler) Schedule(ctx context.Context, bucket, object string) error {
	body, err := encode(bucket, object)
	if err != nil {
		return err
	}
	req := &cloudtasks.HttpRequest{
		Url:        s.opts.HandleURL,
		HttpMethod: "POST",
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       base64.StdEncoding.EncodeToString(body),
	}
	if s.opts.ServiceAccountEmail != "" {
		req.OidcToken = &cloudtasks.OidcToken{
			ServiceAccountEmail: s.opts.ServiceAccountEmail,
			Audience:            s.opts.Audience,
		}
	}
	_, err = s.tasks.Create(s.queue(), &cloudtasks.CreateTaskRequest{
		Task: &cloudtasks.Task{HttpRequest: req},
	}).Context(ctx).Do()
	if err != nil {
		return errors.Wrapf(err, "create task in %s", s.queue())
	}
	return nil
}
